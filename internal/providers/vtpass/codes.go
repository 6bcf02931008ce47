package vtpass

import "tekpay/internal/providers"

const (
	CodeSuccess    = "000"
	CodeQueryOK    = "001"
	CodeResolved   = "044"
	CodeReversed   = "040"
	CodeProcessing = "099"
)

var codeMessages = map[string]string{
	"000": "Transaction processed successfully",
	"099": "Transaction is processing",
	"001": "Transaction query successful",
	"044": "Transaction has been resolved",
	"091": "Transaction not processed",
	"016": "Transaction failed",
	"010": "Invalid variation code",
	"011": "Invalid arguments provided",
	"012": "Product does not exist",
	"013": "Amount is below minimum allowed",
	"014": "Request ID already exists",
	"015": "Invalid request ID",
	"017": "Amount is above maximum allowed",
	"018": "Insufficient wallet balance",
	"019": "Possible duplicate transaction",
	"021": "Account is locked",
	"022": "Account is suspended",
	"023": "API access not enabled",
	"024": "Account is inactive",
	"025": "Invalid recipient bank",
	"026": "Recipient account verification failed",
	"027": "IP not whitelisted",
	"028": "Product not whitelisted for your account",
	"030": "Biller not reachable",
	"031": "Quantity is below minimum allowed",
	"032": "Quantity is above maximum allowed",
	"034": "Service is suspended",
	"035": "Service is inactive",
	"040": "Transaction reversed to wallet",
	"083": "System error occurred",
	"085": "Invalid request ID format",
}

// Message returns the fixed description of a response code.
func Message(code string) string {
	if msg, ok := codeMessages[code]; ok {
		return msg
	}
	return "Unknown response code"
}

// Transaction statuses reported inside content.transactions.
const (
	TxnDelivered = "delivered"
	TxnInitiated = "initiated"
	TxnPending   = "pending"
	TxnFailed    = "failed"
	TxnReversed  = "reversed"
)

// StatusText describes a transaction status for the client.
func StatusText(status string) string {
	switch status {
	case TxnDelivered:
		return "Transaction completed successfully"
	case TxnInitiated:
		return "Transaction initiated"
	case TxnPending:
		return "Transaction is pending"
	case TxnFailed:
		return "Transaction failed"
	default:
		return "Unknown transaction status"
	}
}

func isSuccessCode(code string) bool {
	switch code {
	case CodeSuccess, CodeQueryOK, CodeResolved, CodeReversed:
		return true
	}
	return false
}

// Classify maps a response code and transaction status to an outcome. A
// success code still yields Processing or Failure when the transaction
// itself says so.
func Classify(code, txnStatus string) providers.Outcome {
	if code == CodeProcessing {
		return providers.OutcomeProcessing
	}
	if !isSuccessCode(code) {
		return providers.OutcomeFailure
	}
	switch txnStatus {
	case TxnPending, TxnInitiated:
		return providers.OutcomeProcessing
	case TxnFailed, TxnReversed:
		return providers.OutcomeFailure
	}
	return providers.OutcomeSuccess
}
