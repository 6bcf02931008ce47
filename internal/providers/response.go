// Package providers holds the canonical shape every external biller or
// payment provider response is mapped into before the settlement engine
// looks at it.
package providers

import (
	"bytes"
	"encoding/json"
	"time"

	"tekpay/internal/models"

	"github.com/shopspring/decimal"
)

// Outcome is the classification of a provider response.
type Outcome int

const (
	OutcomeFailure Outcome = iota
	OutcomeSuccess
	OutcomeProcessing
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeProcessing:
		return "processing"
	default:
		return "failure"
	}
}

// LedgerStatus is the status a freshly inserted row takes for the outcome.
func (o Outcome) LedgerStatus() string {
	switch o {
	case OutcomeSuccess:
		return models.StatusSuccess
	case OutcomeProcessing:
		return models.StatusPending
	default:
		return models.StatusFailed
	}
}

// Response is a classified provider answer.
type Response struct {
	Code            string
	Outcome         Outcome
	Message         string
	ProviderTxnID   string
	Status          string
	Amount          decimal.Decimal
	Commission      decimal.Decimal
	TotalAmount     decimal.Decimal
	ProductName     string
	PurchasedCode   string
	TransactionDate *time.Time
	// TimedOut is set when no answer arrived before the deadline.
	TimedOut bool
	Raw      []byte
}

// FlexString decodes a JSON string or number into a string.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }
