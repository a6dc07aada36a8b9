package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type WalletTrxType string

const (
	WalletTrxDeposit      WalletTrxType = "deposit"
	WalletTrxWithdrawal   WalletTrxType = "withdrawal"
	WalletTrxRelease      WalletTrxType = "release"
	WalletTrxTransfer     WalletTrxType = "transfer"
	WalletTrxSubscription WalletTrxType = "subscription"
)

type WalletTrxStatus string

const (
	WalletTrxPending   WalletTrxStatus = "pending"
	WalletTrxCompleted WalletTrxStatus = "completed"
	WalletTrxFailed    WalletTrxStatus = "failed"
)

// ErrTrxNotPending is returned by the transition guards when a transaction
// already reached a terminal status.
var ErrTrxNotPending = errors.New("wallet transaction is not pending")

type Wallet struct {
	ID       uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID   uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Balance  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	Verified bool            `gorm:"default:false" json:"verified"`
	PinHash  *string         `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

type WalletTransaction struct {
	ID       uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WalletID uuid.UUID       `gorm:"type:uuid;index;not null" json:"wallet_id"`
	Type     WalletTrxType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Amount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status   WalletTrxStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Title    string          `gorm:"not null" json:"title"`
	Subtitle *string         `json:"subtitle,omitempty"`
	Method   *string         `json:"method,omitempty"`
	// External gateway correlation id. Unique when present so a gateway
	// confirmation can only ever land on one row.
	Reference *string `gorm:"uniqueIndex" json:"reference,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Wallet *Wallet `gorm:"foreignKey:WalletID" json:"-"`
}

// Terminal reports whether the transaction can no longer change status.
func (t *WalletTransaction) Terminal() bool {
	return t.Status == WalletTrxCompleted || t.Status == WalletTrxFailed
}

// MarkCompleted moves pending -> completed. Completed and failed are terminal.
func (t *WalletTransaction) MarkCompleted() error {
	if t.Status != WalletTrxPending {
		return ErrTrxNotPending
	}
	t.Status = WalletTrxCompleted
	return nil
}

// MarkFailed moves pending -> failed.
func (t *WalletTransaction) MarkFailed() error {
	if t.Status != WalletTrxPending {
		return ErrTrxNotPending
	}
	t.Status = WalletTrxFailed
	return nil
}
