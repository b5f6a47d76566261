package clinical

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/therapulse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"gorm.io/datatypes"
)

func TestPatientRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewPatientRepo(db, testutil.Logger(t))

	therapist := testutil.SeedTherapist(t, ctx, tx, "patientrepo@example.com")
	other := testutil.SeedTherapist(t, ctx, tx, "patientrepo-other@example.com")

	p := &types.Patient{
		ID:               uuid.New(),
		TherapistID:      therapist.ID,
		Name:             "Jane Roe",
		Age:              28,
		Gender:           "female",
		Status:           "active",
		ContactDetails:   datatypes.JSON([]byte(`{"phone":"555-0100"}`)),
		EmergencyContact: datatypes.JSON([]byte(`{"name":"John Roe"}`)),
	}
	if _, err := repo.Create(ctx, tx, []*types.Patient{p}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	testutil.SeedSession(t, ctx, tx, p.ID, therapist.ID)
	testutil.SeedDocument(t, ctx, tx, p.ID, therapist.ID)

	got, err := repo.GetByID(ctx, tx, therapist.ID, p.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if len(got.Sessions) != 1 || len(got.Documents) != 1 {
		t.Fatalf("GetByID preloads: sessions=%d documents=%d", len(got.Sessions), len(got.Documents))
	}

	// Ownership scoping: other therapists never see the row.
	if got, err := repo.GetByID(ctx, tx, other.ID, p.ID); err != nil || got != nil {
		t.Fatalf("GetByID with wrong therapist: err=%v got=%v", err, got)
	}

	inactive := testutil.SeedPatient(t, ctx, tx, therapist.ID)
	if ok, err := repo.UpdateFields(ctx, tx, therapist.ID, inactive.ID, map[string]any{"status": "inactive"}); err != nil || !ok {
		t.Fatalf("UpdateFields: err=%v ok=%v", err, ok)
	}

	if rows, err := repo.ListByTherapist(ctx, tx, therapist.ID, ""); err != nil || len(rows) != 2 {
		t.Fatalf("ListByTherapist all: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.ListByTherapist(ctx, tx, therapist.ID, "active"); err != nil || len(rows) != 1 {
		t.Fatalf("ListByTherapist active: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.ListByTherapist(ctx, tx, other.ID, ""); err != nil || len(rows) != 0 {
		t.Fatalf("ListByTherapist wrong therapist: err=%v len=%d", err, len(rows))
	}

	if ok, err := repo.UpdateFields(ctx, tx, other.ID, p.ID, map[string]any{"status": "inactive"}); err != nil || ok {
		t.Fatalf("UpdateFields with wrong therapist: err=%v ok=%v", err, ok)
	}

	if ok, err := repo.Delete(ctx, tx, other.ID, p.ID); err != nil || ok {
		t.Fatalf("Delete with wrong therapist: err=%v ok=%v", err, ok)
	}
	if ok, err := repo.Delete(ctx, tx, therapist.ID, p.ID); err != nil || !ok {
		t.Fatalf("Delete: err=%v ok=%v", err, ok)
	}
}
