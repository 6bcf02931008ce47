package validation

import (
	"unicode"
)

// Password validates password strength
func (v *Validator) Password(field, password string) {
	v.Check(len(password) >= MinPasswordLength, field, "must be at least 8 characters long")
	v.Check(len(password) <= MaxPasswordLength, field, "must not be more than 72 characters long")

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	v.Check(hasUpper, field, "must contain at least one uppercase letter")
	v.Check(hasLower, field, "must contain at least one lowercase letter")
	v.Check(hasNumber, field, "must contain at least one number")
}

// Pin validates a transaction PIN
func (v *Validator) Pin(field, pin string) {
	v.Digits(field, pin, PinLength)
}
