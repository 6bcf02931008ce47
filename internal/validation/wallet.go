package validation

import (
	"github.com/shopspring/decimal"
)

// ValidateWalletTransfer checks an in-app transfer between two users.
func ValidateWalletTransfer(senderID, recipientID uint, amount decimal.Decimal, narration string) error {
	v := New()
	v.Check(recipientID != 0, "recipient_id", "is required")
	v.Check(senderID != recipientID, "recipient_id", "cannot transfer to yourself")
	v.Amount("amount", amount)
	v.Min("amount", amount, MinTransferAmount)
	v.MaxLength("narration", narration, MaxNarrationLength)
	return v.Err()
}

// ValidateBankTransfer checks a payout to a bank account.
func ValidateBankTransfer(accountBank, accountNumber string, amount decimal.Decimal, narration string) error {
	v := New()
	v.Required("account_bank", accountBank)
	v.Digits("account_number", accountNumber, AccountNumberLength)
	v.Amount("amount", amount)
	v.Min("amount", amount, MinTransferAmount)
	v.MaxLength("narration", narration, MaxNarrationLength)
	return v.Err()
}
