package models

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportReviewed ReportStatus = "reviewed"
)

// Report is a field report filed by a developer against an assignment.
type Report struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReportCode   string          `gorm:"uniqueIndex;size:12;not null" json:"report_code"`
	ProjectID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"project_id"`
	AssignmentID uuid.UUID       `gorm:"type:uuid;index;not null" json:"assignment_id"`
	CreatedByID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"created_by_id"`
	Title        string          `gorm:"not null" json:"title"`
	ReportText   string          `gorm:"type:text" json:"report_text"`
	Status       ReportStatus    `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Progress     decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"progress"`

	// Uploaded photo/video URLs plus per-item captions.
	Media datatypes.JSON `gorm:"type:jsonb" json:"media,omitempty"`

	ExpectedCompletion *time.Time `json:"expected_completion,omitempty"`
	SubmittedAt        *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt         *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project    *Project    `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Assignment *Assignment `gorm:"foreignKey:AssignmentID" json:"assignment,omitempty"`
	CreatedBy  *User       `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
}

// GenerateReportCode generates a random alphanumeric report code, e.g. RPT-K9XT31QZ.
func GenerateReportCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, 8)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return "RPT-" + string(b)
}
