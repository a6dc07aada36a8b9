package models

import (
	"time"

	"github.com/google/uuid"
)

// BankAccount is a saved payout destination, name-checked against the gateway
// before it is stored.
type BankAccount struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	BankName      string    `gorm:"not null" json:"bank_name"`
	BankCode      string    `gorm:"type:varchar(10);not null" json:"bank_code"`
	AccountNumber string    `gorm:"type:varchar(20);not null" json:"account_number"`
	AccountName   string    `gorm:"not null" json:"account_name"`
	IsDefault     bool      `gorm:"default:false" json:"is_default"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}
