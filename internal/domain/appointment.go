package domain

import (
	"time"

	"github.com/google/uuid"
)

type Appointment struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TherapistID uuid.UUID `gorm:"type:uuid;not null;index" json:"therapist_id"`
	PatientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	Patient     *Patient  `gorm:"constraint:OnDelete:CASCADE;foreignKey:PatientID;references:ID" json:"-"`
	Date        string    `gorm:"not null;index;column:date" json:"date"`
	Time        string    `gorm:"not null;column:time" json:"time"`
	Duration    string    `gorm:"not null;column:duration" json:"duration"`
	Type        string    `gorm:"not null;column:type" json:"type"`
	Status      string    `gorm:"not null;column:status" json:"status"`
	Notes       string    `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Appointment) TableName() string { return "appointment" }
