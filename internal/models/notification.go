package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationDeposit NotificationKind = "deposit_settled"
	NotificationEscrow  NotificationKind = "escrow_decided"
	NotificationProject NotificationKind = "project_update"
	NotificationGeneral NotificationKind = "general"
)

type Notification struct {
	ID     uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID        `gorm:"type:uuid;index;not null" json:"user_id"`
	Kind   NotificationKind `gorm:"type:varchar(30);not null" json:"kind"`
	Title  string           `gorm:"not null" json:"title"`
	Body   string           `gorm:"type:text" json:"body"`
	IsRead bool             `gorm:"default:false;index" json:"is_read"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}
