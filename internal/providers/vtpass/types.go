package vtpass

import (
	"bytes"
	"encoding/json"
	"time"

	"tekpay/internal/providers"

	"github.com/shopspring/decimal"
)

// PayRequest is the body of POST /pay.
type PayRequest struct {
	RequestID        string          `json:"request_id"`
	ServiceID        string          `json:"serviceID"`
	Amount           decimal.Decimal `json:"amount"`
	Phone            string          `json:"phone"`
	BillersCode      string          `json:"billersCode,omitempty"`
	VariationCode    string          `json:"variation_code,omitempty"`
	Quantity         int             `json:"quantity,omitempty"`
	SubscriptionType string          `json:"subscription_type,omitempty"`
}

type transactionContent struct {
	Status        string               `json:"status"`
	TransactionID providers.FlexString `json:"transactionId"`
	Amount        decimal.NullDecimal  `json:"amount"`
	Commission    decimal.NullDecimal  `json:"commission"`
	TotalAmount   decimal.NullDecimal  `json:"total_amount"`
	ProductName   string               `json:"product_name"`
	Phone         providers.FlexString `json:"phone"`
}

// Payload is the response body of /pay and /requery, and the data part of
// a transaction-update callback.
type Payload struct {
	Code                string              `json:"code"`
	RequestID           string              `json:"requestId"`
	ResponseDescription string              `json:"response_description"`
	Amount              decimal.NullDecimal `json:"amount"`
	PurchasedCode       string              `json:"purchased_code"`
	TransactionDate     Date                `json:"transaction_date"`
	Content             struct {
		Transactions transactionContent `json:"transactions"`
	} `json:"content"`
}

// Event is the body VTpass posts to the callback URL.
type Event struct {
	Type string  `json:"type"`
	Data Payload `json:"data"`
}

const EventTransactionUpdate = "transaction-update"

// Date accepts either {"date": "..."} or a plain string.
type Date struct {
	Time *time.Time
}

var lagos = mustLocation("Africa/Lagos")

func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("WAT", 3600)
	}
	return loc
}

var dateLayouts = []string{
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var raw string
	if data[0] == '{' {
		var obj struct {
			Date string `json:"date"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		raw = obj.Date
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, lagos); err == nil {
			d.Time = &t
			return nil
		}
	}
	return nil
}

// Response maps the payload to the canonical provider response.
func (p *Payload) Response(raw []byte) *providers.Response {
	txn := p.Content.Transactions
	resp := &providers.Response{
		Code:            p.Code,
		Outcome:         Classify(p.Code, txn.Status),
		Message:         Message(p.Code),
		ProviderTxnID:   txn.TransactionID.String(),
		Status:          txn.Status,
		ProductName:     txn.ProductName,
		PurchasedCode:   p.PurchasedCode,
		TransactionDate: p.TransactionDate.Time,
		Raw:             raw,
	}
	switch {
	case txn.Amount.Valid:
		resp.Amount = txn.Amount.Decimal
	case p.Amount.Valid:
		resp.Amount = p.Amount.Decimal
	}
	if txn.Commission.Valid {
		resp.Commission = txn.Commission.Decimal
	}
	if txn.TotalAmount.Valid {
		resp.TotalAmount = txn.TotalAmount.Decimal
	}
	return resp
}
