package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedTherapist(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:             uuid.New(),
		Email:          email,
		Password:       "pw",
		FullName:       "Dr. Test Therapist",
		Specialization: "CBT",
		LicenseNumber:  "LIC-0001",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed therapist: %v", err)
	}
	return u
}

func SeedPatient(tb testing.TB, ctx context.Context, tx *gorm.DB, therapistID uuid.UUID) *types.Patient {
	tb.Helper()
	p := &types.Patient{
		ID:               uuid.New(),
		TherapistID:      therapistID,
		Name:             "Test Patient",
		Age:              30,
		Gender:           "female",
		Status:           "active",
		ContactDetails:   datatypes.JSON([]byte(`{}`)),
		EmergencyContact: datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed patient: %v", err)
	}
	return p
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, patientID, therapistID uuid.UUID) *types.Session {
	tb.Helper()
	s := &types.Session{
		ID:          uuid.New(),
		PatientID:   patientID,
		TherapistID: therapistID,
		Title:       "Intake Session",
		Date:        "2026-01-15",
		Duration:    "50 min",
		VideoKey:    "media/video/" + uuid.NewString() + ".mp4",
		VideoURL:    "https://storage.example.com/media/video/test.mp4",
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, patientID, therapistID uuid.UUID) *types.Document {
	tb.Helper()
	d := &types.Document{
		ID:          uuid.New(),
		PatientID:   patientID,
		TherapistID: therapistID,
		Title:       "Assessment Report",
		StorageKey:  "documents/" + uuid.NewString() + ".pdf",
		FileURL:     "https://storage.example.com/documents/test.pdf",
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}

func SeedJobRun(tb testing.TB, ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID, jobType string, entityID uuid.UUID) *types.JobRun {
	tb.Helper()
	j := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  "session",
		EntityID:    PtrUUID(entityID),
		Status:      types.JobStatusQueued,
		Stage:       "queued",
		Payload:     datatypes.JSON([]byte(`{}`)),
		Result:      datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job run: %v", err)
	}
	return j
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
