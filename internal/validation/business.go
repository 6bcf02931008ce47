package validation

import (
	"tekpay/internal/models"

	"github.com/shopspring/decimal"
)

// Bill is a bill purchase as submitted by the client.
type Bill struct {
	Category         string
	ServiceID        string
	Amount           decimal.Decimal
	Phone            string
	BillersCode      string
	VariationCode    string
	Quantity         int
	SubscriptionType string
}

// Bill validates a purchase against the catalogue rules of its category
func (v *Validator) Bill(b Bill) {
	v.Phone("phone", b.Phone)
	v.Amount("amount", b.Amount)

	switch b.Category {
	case models.CategoryAirtime:
		v.OneOf("serviceID", b.ServiceID, AirtimeServices)
		v.Range("amount", b.Amount, MinAirtimeAmount, MaxAirtimeAmount)
	case models.CategoryData:
		v.OneOf("serviceID", b.ServiceID, DataServices)
		v.Required("billersCode", b.BillersCode)
		v.Required("variation_code", b.VariationCode)
		v.Range("amount", b.Amount, MinAirtimeAmount, MaxAirtimeAmount)
	case models.CategoryTV:
		v.OneOf("serviceID", b.ServiceID, TVServices)
		v.Required("billersCode", b.BillersCode)
		if b.ServiceID == "dstv" || b.ServiceID == "gotv" {
			v.OneOf("subscription_type", b.SubscriptionType, SubscriptionTypes)
			if b.SubscriptionType == "change" {
				v.Required("variation_code", b.VariationCode)
			}
			v.Check(b.Quantity >= 0, "quantity", "must not be negative")
		} else {
			v.Required("variation_code", b.VariationCode)
		}
	case models.CategoryElectricity:
		v.Required("serviceID", b.ServiceID)
		v.Required("billersCode", b.BillersCode)
		v.OneOf("variation_code", b.VariationCode, MeterTypes)
		v.Min("amount", b.Amount, MinBillAmount)
	case models.CategoryEducation:
		v.OneOf("serviceID", b.ServiceID, EducationServices)
		v.Required("variation_code", b.VariationCode)
		v.Check(b.Quantity >= 0, "quantity", "must not be negative")
		if b.ServiceID == "jamb" {
			v.Required("billersCode", b.BillersCode)
		}
	case models.CategoryInternet:
		v.OneOf("serviceID", b.ServiceID, InternetServices)
		v.Required("billersCode", b.BillersCode)
		v.Required("variation_code", b.VariationCode)
		v.Min("amount", b.Amount, MinBillAmount)
	default:
		v.AddError("category", "unsupported bill category")
	}
}

// ValidateBill runs the Bill rules and returns the first failure.
func ValidateBill(b Bill) error {
	v := New()
	v.Bill(b)
	return v.Err()
}
