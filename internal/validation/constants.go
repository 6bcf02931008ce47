package validation

import "github.com/shopspring/decimal"

var (
	// Airtime and data
	MinAirtimeAmount = decimal.NewFromInt(50)
	MaxAirtimeAmount = decimal.NewFromInt(50000)

	// Electricity, internet and transfers
	MinBillAmount     = decimal.NewFromInt(100)
	MinTransferAmount = decimal.NewFromInt(100)

	// Card funding
	MinFundingAmount = decimal.NewFromInt(100)
	MaxFundingAmount = decimal.NewFromInt(1000000)
)

const (
	// Password requirements
	MinPasswordLength = 8
	MaxPasswordLength = 72

	PinLength = 4

	// String lengths
	MaxNarrationLength  = 100
	AccountNumberLength = 10
)

// Service ids accepted per bill category.
var (
	AirtimeServices   = []string{"mtn", "glo", "airtel", "etisalat"}
	DataServices      = []string{"mtn-data", "glo-data", "airtel-data", "etisalat-data", "glo-sme-data", "9mobile-sme-data"}
	TVServices        = []string{"dstv", "gotv", "startimes", "showmax"}
	EducationServices = []string{"waec", "waec-registration", "jamb"}
	InternetServices  = []string{"smile-direct", "spectranet"}

	MeterTypes        = []string{"prepaid", "postpaid"}
	SubscriptionTypes = []string{"change", "renew"}
)
