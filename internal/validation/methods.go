package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	apperrors "tekpay/internal/errors"

	"github.com/shopspring/decimal"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex  = regexp.MustCompile(`^(\+?234|0)[789][01]\d{8}$`)
	digitsRegex = regexp.MustCompile(`^\d+$`)
)

// Validator collects field errors
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError keeps the first message recorded for a field
func (v *Validator) AddError(field, message string) {
	if _, exists := v.Errors[field]; !exists {
		v.Errors[field] = message
	}
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Err returns nil or a ValidationError for the alphabetically first field.
func (v *Validator) Err() error {
	if v.Valid() {
		return nil
	}
	fields := make([]string, 0, len(v.Errors))
	for f := range v.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return apperrors.Validation(fields[0], v.Errors[fields[0]])
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(emailRegex.MatchString(email), field, "must be a valid email address")
}

// Phone validates a Nigerian phone number
func (v *Validator) Phone(field, phone string) {
	v.Check(phoneRegex.MatchString(phone), field, "must be a valid phone number")
}

// Required checks that a string is not blank
func (v *Validator) Required(field, value string) {
	v.Check(strings.TrimSpace(value) != "", field, "is required")
}

// OneOf checks that value is one of allowed
func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")))
}

// Digits checks for exactly n decimal digits
func (v *Validator) Digits(field, value string, n int) {
	v.Check(len(value) == n && digitsRegex.MatchString(value), field, fmt.Sprintf("must be %d digits", n))
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Amount checks that value is positive with at most two decimal places
func (v *Validator) Amount(field string, value decimal.Decimal) {
	v.Check(value.IsPositive(), field, "must be greater than zero")
	v.Check(value.Equal(value.Round(2)), field, "must have at most two decimal places")
}

// Min checks value >= min
func (v *Validator) Min(field string, value, min decimal.Decimal) {
	v.Check(value.GreaterThanOrEqual(min), field, fmt.Sprintf("must be at least %s", min.String()))
}

// Range checks min <= value <= max
func (v *Validator) Range(field string, value, min, max decimal.Decimal) {
	v.Check(value.GreaterThanOrEqual(min) && value.LessThanOrEqual(max), field,
		fmt.Sprintf("must be between %s and %s", min.String(), max.String()))
}
