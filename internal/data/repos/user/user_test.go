package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/therapulse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/therapulse-backend/internal/domain"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewUserRepo(db, testutil.Logger(t))

	u := &types.User{
		ID:             uuid.New(),
		Email:          "userrepo@example.com",
		Password:       "pw",
		FullName:       "Dr. Repo Test",
		Specialization: "CBT",
		LicenseNumber:  "LIC-9999",
	}
	if _, err := repo.Create(ctx, tx, []*types.User{u}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{u.ID}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.GetByEmails(ctx, tx, []string{u.Email}); err != nil || len(rows) != 1 {
		t.Fatalf("GetByEmails: err=%v len=%d", err, len(rows))
	}

	if exists, err := repo.EmailExists(ctx, tx, u.Email); err != nil || !exists {
		t.Fatalf("EmailExists: err=%v exists=%v", err, exists)
	}
	if exists, err := repo.EmailExists(ctx, tx, "nobody@example.com"); err != nil || exists {
		t.Fatalf("EmailExists for unknown email: err=%v exists=%v", err, exists)
	}

	if err := repo.UpdateFields(ctx, tx, u.ID, map[string]any{
		"bio":   "updated bio",
		"phone": "555-0101",
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if err := repo.UpdatePassword(ctx, tx, u.ID, "new-hash"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if err := repo.UpdateProfileImage(ctx, tx, u.ID, "https://example.com/p.png"); err != nil {
		t.Fatalf("UpdateProfileImage: %v", err)
	}

	rows, err := repo.GetByIDs(ctx, tx, []uuid.UUID{u.ID})
	if err != nil || len(rows) != 1 {
		t.Fatalf("GetByIDs after updates: err=%v len=%d", err, len(rows))
	}
	got := rows[0]
	if got.Bio != "updated bio" || got.Phone != "555-0101" {
		t.Fatalf("UpdateFields not applied: bio=%q phone=%q", got.Bio, got.Phone)
	}
	if got.Password != "new-hash" {
		t.Fatalf("UpdatePassword not applied: %q", got.Password)
	}
	if got.ProfileImage != "https://example.com/p.png" {
		t.Fatalf("UpdateProfileImage not applied: %q", got.ProfileImage)
	}
}
