package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EscrowStatus string

const (
	EscrowPending  EscrowStatus = "pending"
	EscrowApproved EscrowStatus = "approved"
	EscrowRejected EscrowStatus = "rejected"
)

// ErrEscrowNotPending is returned when an approve/reject is attempted on a
// record that already left pending. Approved and rejected are terminal.
var ErrEscrowNotPending = errors.New("escrow record is not pending")

// decide is the shared transition for both escrow record kinds.
func (s EscrowStatus) decide(to EscrowStatus) (EscrowStatus, error) {
	if s != EscrowPending {
		return s, ErrEscrowNotPending
	}
	if to != EscrowApproved && to != EscrowRejected {
		return s, ErrEscrowNotPending
	}
	return to, nil
}

// EscrowTransfer is a request to move escrowed project funds to a recipient,
// held pending until an admin decides it. No balance is touched at creation.
type EscrowTransfer struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID        uuid.UUID       `gorm:"type:uuid;index;not null" json:"project_id"`
	TransferToUserID *uuid.UUID      `gorm:"type:uuid" json:"transfer_to_user_id,omitempty"`
	TransferTo       string          `gorm:"not null" json:"transfer_to"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status           EscrowStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DateSent         *time.Time      `json:"date_sent,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project        *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	TransferToUser *User    `gorm:"foreignKey:TransferToUserID" json:"transfer_to_user,omitempty"`
}

// Approve stamps the send date and moves pending -> approved.
func (t *EscrowTransfer) Approve(at time.Time) error {
	next, err := t.Status.decide(EscrowApproved)
	if err != nil {
		return err
	}
	t.Status = next
	t.DateSent = &at
	return nil
}

// Reject moves pending -> rejected.
func (t *EscrowTransfer) Reject() error {
	next, err := t.Status.decide(EscrowRejected)
	if err != nil {
		return err
	}
	t.Status = next
	return nil
}

// EscrowWithdrawal is a request to pay escrowed project funds out to a bank
// account, held pending until an admin decides it.
type EscrowWithdrawal struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID       `gorm:"type:uuid;index;not null" json:"project_id"`
	BankName  string          `gorm:"not null" json:"bank_name"`
	AccountNo string          `gorm:"not null" json:"account_no"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status    EscrowStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Date      *time.Time      `json:"date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// Approve stamps the settlement date and moves pending -> approved.
func (w *EscrowWithdrawal) Approve(at time.Time) error {
	next, err := w.Status.decide(EscrowApproved)
	if err != nil {
		return err
	}
	w.Status = next
	w.Date = &at
	return nil
}

// Reject moves pending -> rejected.
func (w *EscrowWithdrawal) Reject() error {
	next, err := w.Status.decide(EscrowRejected)
	if err != nil {
		return err
	}
	w.Status = next
	return nil
}
