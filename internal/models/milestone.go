package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MilestoneName is the fixed set of construction phases a project is
// tracked against.
type MilestoneName string

const (
	MilestoneFoundation MilestoneName = "foundation"
	MilestoneRoofing    MilestoneName = "roofing"
	MilestoneBuilding   MilestoneName = "building"
	MilestoneFinishing  MilestoneName = "finishing"
	MilestonePlumbing   MilestoneName = "plumbing"
	MilestonePainting   MilestoneName = "painting"
)

type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneOngoing   MilestoneStatus = "ongoing"
	MilestoneCompleted MilestoneStatus = "completed"
)

// ParseMilestoneName normalizes client input to one of the known phases.
func ParseMilestoneName(s string) (MilestoneName, error) {
	switch MilestoneName(strings.ToLower(strings.TrimSpace(s))) {
	case MilestoneFoundation:
		return MilestoneFoundation, nil
	case MilestoneRoofing:
		return MilestoneRoofing, nil
	case MilestoneBuilding:
		return MilestoneBuilding, nil
	case MilestoneFinishing:
		return MilestoneFinishing, nil
	case MilestonePlumbing:
		return MilestonePlumbing, nil
	case MilestonePainting:
		return MilestonePainting, nil
	}
	return "", fmt.Errorf("unknown milestone name %q", s)
}

func ParseMilestoneStatus(s string) (MilestoneStatus, error) {
	switch MilestoneStatus(strings.ToLower(strings.TrimSpace(s))) {
	case MilestonePending:
		return MilestonePending, nil
	case MilestoneOngoing:
		return MilestoneOngoing, nil
	case MilestoneCompleted:
		return MilestoneCompleted, nil
	}
	return "", fmt.Errorf("unknown milestone status %q", s)
}

// Milestone is one tracked phase of a project's construction.
type Milestone struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProjectID uuid.UUID       `gorm:"type:uuid;index;not null" json:"project_id"`
	Name      MilestoneName   `gorm:"type:varchar(20);not null" json:"name"`
	Progress  decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"progress"`
	Status    MilestoneStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`

	Budget             *decimal.Decimal `gorm:"type:decimal(12,2)" json:"budget,omitempty"`
	ExpectedCompletion *time.Time       `json:"expected_completion,omitempty"`
	DateStarted        *time.Time       `json:"date_started,omitempty"`
	DateCompleted      *time.Time       `json:"date_completed,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}
