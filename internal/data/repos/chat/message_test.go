package chat

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/therapulse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/therapulse-backend/internal/domain"
)

func TestMessageRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	repo := NewMessageRepo(db, testutil.Logger(t))

	u := testutil.SeedTherapist(t, ctx, tx, "chatrepo@example.com")
	other := testutil.SeedTherapist(t, ctx, tx, "chatrepo-other@example.com")

	for _, text := range []string{"hello", "how do I schedule?", "thanks"} {
		m := &types.ChatMessage{
			ID:       uuid.New(),
			UserID:   u.ID,
			Message:  text,
			Response: "reply to " + text,
		}
		if _, err := repo.Create(ctx, tx, []*types.ChatMessage{m}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	rows, err := repo.ListByUser(ctx, tx, u.ID, 0)
	if err != nil || len(rows) != 3 {
		t.Fatalf("ListByUser: err=%v len=%d", err, len(rows))
	}
	if rows[0].Message != "hello" {
		t.Fatalf("expected oldest first, got %q", rows[0].Message)
	}

	if rows, err := repo.ListByUser(ctx, tx, u.ID, 2); err != nil || len(rows) != 2 {
		t.Fatalf("ListByUser limited: err=%v len=%d", err, len(rows))
	}
	if rows, err := repo.ListByUser(ctx, tx, other.ID, 0); err != nil || len(rows) != 0 {
		t.Fatalf("ListByUser other user: err=%v len=%d", err, len(rows))
	}
}
