package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Patient is the aggregate root for sessions and documents. Children are only
// ever addressed through the owning patient, so cross-patient session ids can
// never match (see SessionRepo.SetArtifact).
type Patient struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TherapistID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"therapist_id"`
	Therapist            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:TherapistID;references:ID" json:"-"`
	Name                 string         `gorm:"not null;column:name" json:"name"`
	Age                  int            `gorm:"not null;column:age" json:"age"`
	Gender               string         `gorm:"not null;column:gender" json:"gender"`
	Status               string         `gorm:"not null;index;column:status" json:"status"`
	Image                string         `gorm:"column:image" json:"image"`
	ContactDetails       datatypes.JSON `gorm:"column:contact_details;type:jsonb" json:"contact_details"`
	Address              string         `gorm:"column:address" json:"address"`
	MedicalHistory       string         `gorm:"column:medical_history;type:text" json:"medical_history"`
	FamilyHistory        string         `gorm:"column:family_history;type:text" json:"family_history"`
	PresentingProblem    string         `gorm:"column:presenting_problem;type:text" json:"presenting_problem"`
	ClinicalObservations string         `gorm:"column:clinical_observations;type:text" json:"clinical_observations"`
	Assessment           string         `gorm:"column:assessment;type:text" json:"assessment"`
	Diagnosis            string         `gorm:"column:diagnosis" json:"diagnosis"`
	TreatmentPlan        string         `gorm:"column:treatment_plan;type:text" json:"treatment_plan"`
	Medications          string         `gorm:"column:medications;type:text" json:"medications"`
	Lifestyle            string         `gorm:"column:lifestyle;type:text" json:"lifestyle"`
	EmergencyContact     datatypes.JSON `gorm:"column:emergency_contact;type:jsonb" json:"emergency_contact"`
	Sessions             []Session      `gorm:"constraint:OnDelete:CASCADE;foreignKey:PatientID;references:ID" json:"sessions,omitempty"`
	Documents            []Document     `gorm:"constraint:OnDelete:CASCADE;foreignKey:PatientID;references:ID" json:"documents,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Patient) TableName() string { return "patient" }

type Document struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatientID   uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	TherapistID uuid.UUID `gorm:"type:uuid;not null;index" json:"therapist_id"`
	Title       string    `gorm:"not null;column:title" json:"title"`
	StorageKey  string    `gorm:"not null;column:storage_key" json:"-"`
	FileURL     string    `gorm:"not null;column:file_url" json:"file_url"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Document) TableName() string { return "document" }
