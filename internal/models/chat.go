package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a chat thread between a project's client and developer.
type Conversation struct {
	ID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`

	ProjectID   uuid.UUID `gorm:"type:uuid;index" json:"project_id"`
	ClientID    uuid.UUID `gorm:"type:uuid;index" json:"client_id"`
	DeveloperID uuid.UUID `gorm:"type:uuid;index" json:"developer_id"`

	LastMessageAt time.Time `json:"last_message_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Project   *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Client    *User     `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Developer *User     `gorm:"foreignKey:DeveloperID" json:"developer,omitempty"`
	Messages  []Message `gorm:"foreignKey:ConversationID" json:"messages,omitempty"`
}

// Message is a single message in a conversation. Type "system" is used for
// automated notices (payment settled, escrow decided, etc).
type Message struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConversationID uuid.UUID  `gorm:"type:uuid;index" json:"conversation_id"`
	SenderID       uuid.UUID  `gorm:"type:uuid;index" json:"sender_id"`
	Type           string     `gorm:"default:'text'" json:"type"` // text, system
	Text           string     `json:"text"`
	IsRead         bool       `gorm:"default:false" json:"is_read"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Sender *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
}
