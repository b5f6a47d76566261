package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is a single recorded therapy encounter under a patient.
//
// ReportURL and InsightsURL are write-once-effectively: once set, regeneration
// is skipped and the cached URL is returned. The paired GeneratedAt timestamps
// are set in the same update.
type Session struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatientID    uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	TherapistID  uuid.UUID `gorm:"type:uuid;not null;index" json:"therapist_id"`
	Title        string    `gorm:"not null;column:title" json:"title"`
	Date         string    `gorm:"not null;column:date" json:"date"`
	Duration     string    `gorm:"not null;column:duration" json:"duration"`
	Notes        string    `gorm:"column:notes;type:text" json:"notes"`
	VideoKey     string    `gorm:"column:video_key" json:"-"`
	VideoURL     string    `gorm:"not null;column:video_url" json:"video_url"`
	ThumbnailURL string    `gorm:"column:thumbnail_url" json:"thumbnail_url"`

	ReportURL          string     `gorm:"column:report_url" json:"report_url,omitempty"`
	ReportGeneratedAt  *time.Time `gorm:"column:report_generated_at" json:"report_generated_at,omitempty"`
	InsightsURL        string     `gorm:"column:insights_url" json:"insights_url,omitempty"`
	InsightsGeneratedAt *time.Time `gorm:"column:insights_generated_at" json:"insights_generated_at,omitempty"`

	NoteEntries []SessionNote `gorm:"constraint:OnDelete:CASCADE;foreignKey:SessionID;references:ID" json:"note_entries,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

func (Session) TableName() string { return "session" }

// SessionNote is an append-only timestamped note pinned to a moment in the video.
type SessionNote struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID   uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	TherapistID uuid.UUID `gorm:"type:uuid;not null;index" json:"therapist_id"`
	Text        string    `gorm:"not null;column:text;type:text" json:"text"`
	Timestamp   string    `gorm:"not null;column:timestamp" json:"timestamp"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (SessionNote) TableName() string { return "session_note" }
