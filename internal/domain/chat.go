package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is an append-only exchange: the user's message and the reply the
// assistant produced for it. Rows are never mutated or deleted.
type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Message   string    `gorm:"not null;column:message;type:text" json:"message"`
	Response  string    `gorm:"not null;column:response;type:text" json:"response"`
	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_message" }
