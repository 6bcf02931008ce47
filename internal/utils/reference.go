package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	upperAlnum   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Lagos is the timezone every request id and reference is stamped in.
var Lagos = loadLagos()

func loadLagos() *time.Location {
	loc, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		return time.FixedZone("WAT", 3600)
	}
	return loc
}

// RandomString returns n characters drawn from charset with crypto/rand.
func RandomString(n int, charset string) string {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(charset)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("failed to read random bytes: " + err.Error())
		}
		sb.WriteByte(charset[idx.Int64()])
	}
	return sb.String()
}

// RequestID is the provider idempotency key: Lagos YYYYMMDDHHmm, "_", UUIDv4.
func RequestID(now time.Time) string {
	return now.In(Lagos).Format("200601021504") + "_" + uuid.NewString()
}

// Reference is the purchase correlation key: TRX, Lagos YYYYMMDDHHmmss and
// six random alphanumerics.
func Reference(now time.Time) string {
	return "TRX" + now.In(Lagos).Format("20060102150405") + RandomString(6, alphanumeric)
}

// PayoutReference is TRF_<unix>_<8 random>.
func PayoutReference(now time.Time) string {
	return fmt.Sprintf("TRF_%d_%s", now.Unix(), RandomString(8, alphanumeric))
}

// InAppTransferIDs returns the request ids and references of both legs of
// a wallet to wallet transfer.
func InAppTransferIDs() (senderReq, senderRef, recipientReq, recipientRef string) {
	reqSuffix := RandomString(10, upperAlnum)
	refSuffix := RandomString(10, upperAlnum)
	return "REQ_" + reqSuffix, "TRF_" + refSuffix, "RCV_REQ_" + reqSuffix, "RCV_" + refSuffix
}

// CardReference tags a card funding intent.
func CardReference() string {
	return "CARD_" + RandomString(12, upperAlnum)
}

// ReferralCode is an 8 character uppercase code.
func ReferralCode() string {
	return RandomString(8, upperAlnum)
}

// NewULID returns a time ordered unique id.
func NewULID() string {
	return ulid.Make().String()
}
