package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email            string          `gorm:"uniqueIndex;not null" json:"email"`
	Password         string          `gorm:"not null" json:"-"`
	FirstName        string          `gorm:"not null" json:"first_name"`
	LastName         string          `gorm:"not null" json:"last_name"`
	Phone            string          `gorm:"uniqueIndex;not null" json:"phone"`
	Role             string          `gorm:"default:'user'" json:"role"`
	Status           string          `gorm:"default:'active'" json:"status"`
	TransactionPin   string          `json:"-"`
	TokenVersion     int             `gorm:"default:1" json:"-"`
	ReferralCode     string          `gorm:"size:8;uniqueIndex" json:"referral_code"`
	ReferredBy       *uint           `gorm:"index" json:"referred_by,omitempty"`
	ReferralCount    int             `gorm:"default:0" json:"referral_count"`
	ReferralEarnings decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"referral_earnings"`
	VirtualAccount   string          `gorm:"size:20" json:"virtual_account,omitempty"`
	VirtualBank      string          `json:"virtual_bank,omitempty"`
	LastLoginAt      *time.Time      `json:"last_login_at,omitempty"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// HasPin reports whether a transaction PIN was set.
func (u *User) HasPin() bool {
	return u.TransactionPin != ""
}
