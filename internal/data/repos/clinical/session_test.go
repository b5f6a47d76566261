package clinical

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/therapulse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/therapulse-backend/internal/domain"
)

func TestSessionRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewSessionRepo(db, testutil.Logger(t))

	therapist := testutil.SeedTherapist(t, ctx, tx, "sessionrepo@example.com")
	patient := testutil.SeedPatient(t, ctx, tx, therapist.ID)
	otherPatient := testutil.SeedPatient(t, ctx, tx, therapist.ID)

	s := testutil.SeedSession(t, ctx, tx, patient.ID, therapist.ID)

	got, err := repo.GetByID(ctx, tx, patient.ID, s.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}

	// A session id under a different patient must never resolve.
	if got, err := repo.GetByID(ctx, tx, otherPatient.ID, s.ID); err != nil || got != nil {
		t.Fatalf("GetByID with wrong patient: err=%v got=%v", err, got)
	}

	if rows, err := repo.ListByPatient(ctx, tx, patient.ID); err != nil || len(rows) != 1 {
		t.Fatalf("ListByPatient: err=%v len=%d", err, len(rows))
	}

	if ok, err := repo.UpdateFields(ctx, tx, patient.ID, s.ID, map[string]any{"notes": "progress noted"}); err != nil || !ok {
		t.Fatalf("UpdateFields: err=%v ok=%v", err, ok)
	}
	if ok, err := repo.UpdateFields(ctx, tx, otherPatient.ID, s.ID, map[string]any{"notes": "x"}); err != nil || ok {
		t.Fatalf("UpdateFields with wrong patient: err=%v ok=%v", err, ok)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if ok, err := repo.SetArtifact(ctx, tx, patient.ID, s.ID, ArtifactReport, "https://storage.example.com/artifacts/report.pdf", now); err != nil || !ok {
		t.Fatalf("SetArtifact report: err=%v ok=%v", err, ok)
	}
	if ok, err := repo.SetArtifact(ctx, tx, otherPatient.ID, s.ID, ArtifactInsights, "https://storage.example.com/artifacts/x.pdf", now); err != nil || ok {
		t.Fatalf("SetArtifact with wrong patient: err=%v ok=%v", err, ok)
	}

	got, err = repo.GetByID(ctx, tx, patient.ID, s.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID after SetArtifact: err=%v", err)
	}
	if got.ReportURL != "https://storage.example.com/artifacts/report.pdf" || got.ReportGeneratedAt == nil {
		t.Fatalf("report artifact not persisted: url=%q at=%v", got.ReportURL, got.ReportGeneratedAt)
	}
	if got.InsightsURL != "" {
		t.Fatalf("insights artifact set by wrong-patient update: %q", got.InsightsURL)
	}

	note := &types.SessionNote{
		ID:          uuid.New(),
		SessionID:   s.ID,
		TherapistID: therapist.ID,
		Text:        "patient engaged well",
		Timestamp:   "12:34",
	}
	if _, err := repo.AppendNote(ctx, tx, note); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}
	if notes, err := repo.ListNotes(ctx, tx, s.ID); err != nil || len(notes) != 1 {
		t.Fatalf("ListNotes: err=%v len=%d", err, len(notes))
	}

	if ok, err := repo.Delete(ctx, tx, otherPatient.ID, s.ID); err != nil || ok {
		t.Fatalf("Delete with wrong patient: err=%v ok=%v", err, ok)
	}
	if ok, err := repo.Delete(ctx, tx, patient.ID, s.ID); err != nil || !ok {
		t.Fatalf("Delete: err=%v ok=%v", err, ok)
	}
	if got, err := repo.GetByID(ctx, tx, patient.ID, s.ID); err != nil || got != nil {
		t.Fatalf("GetByID after Delete: err=%v got=%v", err, got)
	}
}
