package flutterwave

import (
	"crypto/subtle"
	"encoding/json"
	"strings"

	"tekpay/internal/providers"

	"github.com/shopspring/decimal"
)

// Webhook event names
const (
	EventChargeCompleted   = "charge.completed"
	EventTransferCompleted = "transfer.completed"

	TypeBankTransfer = "BANK_TRANSFER_TRANSACTION"
	TypeTransfer     = "Transfer"
)

// Transfer and charge statuses
const (
	StatusSuccessful = "SUCCESSFUL"
	StatusFailed     = "FAILED"
	StatusReversed   = "REVERSED"
)

// Event is a webhook delivery. Data is decoded according to the event.
type Event struct {
	Event     string          `json:"event"`
	EventType string          `json:"event.type"`
	Data      json.RawMessage `json:"data"`
}

type ChargeData struct {
	ID                providers.FlexString `json:"id"`
	TxRef             string               `json:"tx_ref"`
	Amount            decimal.Decimal      `json:"amount"`
	ChargedAmount     decimal.Decimal      `json:"charged_amount"`
	AppFee            decimal.Decimal      `json:"app_fee"`
	Status            string               `json:"status"`
	ProcessorResponse string               `json:"processor_response"`
	CreatedAt         string               `json:"created_at"`
	Customer          struct {
		Email string `json:"email"`
	} `json:"customer"`
}

// Successful reports a successful charge, case-insensitively.
func (d *ChargeData) Successful() bool {
	return strings.EqualFold(d.Status, "successful")
}

type TransferData struct {
	ID              providers.FlexString `json:"id"`
	Reference       string               `json:"reference"`
	Amount          decimal.Decimal      `json:"amount"`
	Status          string               `json:"status"`
	CompleteMessage string               `json:"complete_message"`
}

// NormalizedStatus upper-cases the transfer status.
func (d *TransferData) NormalizedStatus() string {
	return strings.ToUpper(d.Status)
}

// VerifyHash compares the verif-hash header with the configured secret.
// An empty secret disables the check.
func VerifyHash(secret, header string) bool {
	if secret == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(header)) == 1
}
