package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProjectStatus string

const (
	ProjectPendingReview ProjectStatus = "pending_review"
	ProjectActive        ProjectStatus = "active"
	ProjectCompleted     ProjectStatus = "completed"
	ProjectRejected      ProjectStatus = "rejected"
)

type AcceptanceStatus string

const (
	AcceptancePending  AcceptanceStatus = "pending"
	AcceptanceAccepted AcceptanceStatus = "accepted"
	AcceptanceRejected AcceptanceStatus = "rejected"
)

type Project struct {
	ID                 uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name               string          `gorm:"not null" json:"name"`
	Description        string          `gorm:"type:text" json:"description"`
	TypeOfConstruction string          `json:"type_of_construction"`
	City               string          `json:"city"`
	Location           string          `gorm:"index" json:"location"`
	Status             ProjectStatus   `gorm:"type:varchar(20);not null;default:'pending_review';index" json:"status"`
	Progress           decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"progress"`

	ClientID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"client_id"`
	DeveloperID *uuid.UUID `gorm:"type:uuid;index" json:"developer_id,omitempty"`

	DeveloperAcceptance      AcceptanceStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"developer_acceptance"`
	DeveloperAcceptedAt      *time.Time       `json:"developer_accepted_at,omitempty"`
	DeveloperRejectedAt      *time.Time       `json:"developer_rejected_at,omitempty"`
	DeveloperRejectionReason string           `gorm:"type:text" json:"developer_rejection_reason,omitempty"`

	CoverImageURL string     `json:"cover_image_url,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Note          string     `gorm:"type:text" json:"note,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Client    *User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Developer *User `gorm:"foreignKey:DeveloperID" json:"developer,omitempty"`

	EscrowTransfers   []EscrowTransfer   `gorm:"foreignKey:ProjectID" json:"escrow_transfers,omitempty"`
	EscrowWithdrawals []EscrowWithdrawal `gorm:"foreignKey:ProjectID" json:"escrow_withdrawals,omitempty"`
}

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentRevoked   AssignmentStatus = "revoked"
)

// Assignment links a developer to a project they are building on.
type Assignment struct {
	ID          uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID   uuid.UUID        `gorm:"type:uuid;index;not null" json:"project_id"`
	DeveloperID uuid.UUID        `gorm:"type:uuid;index;not null" json:"developer_id"`
	Status      AssignmentStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project   *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Developer *User    `gorm:"foreignKey:DeveloperID" json:"developer,omitempty"`
}
