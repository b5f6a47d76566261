package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/therapulse-backend/internal/domain"
)

type memChatRepo struct {
	rows []*types.ChatMessage
}

func (m *memChatRepo) Create(_ context.Context, _ *gorm.DB, messages []*types.ChatMessage) ([]*types.ChatMessage, error) {
	m.rows = append(m.rows, messages...)
	return messages, nil
}

func (m *memChatRepo) ListByUser(_ context.Context, _ *gorm.DB, userID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	out := []*types.ChatMessage{}
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestChatReplyKeywordRouting(t *testing.T) {
	repo := &memChatRepo{}
	svc, err := NewChatService(testLogger(t), repo, "")
	if err != nil {
		t.Fatalf("NewChatService: %v", err)
	}
	userID := uuid.New()

	cases := []struct {
		message string
		want    string
	}{
		{"Hi there", "Hello! How can I assist you today?"},
		{"I want to check an APPOINTMENT", "Would you like to schedule a new appointment or check your existing appointments?"},
		{"please book me in", "To schedule an appointment, please provide your preferred date and time, and I'll check availability."},
		{"I must cancel tomorrow", "If you need to cancel an appointment, please provide the date and time, and I'll help you with that."},
		{"show me my patients", "You can view all your patients in the Patients tab. Would you like me to help you find a specific patient?"},
		{"thanks a lot", "You're welcome! Is there anything else I can help you with?"},
		{"what is the meaning of life", "I'm not sure how to respond to that. Can you please clarify?"},
	}
	for _, tc := range cases {
		got, err := svc.Reply(context.Background(), userID, tc.message)
		if err != nil {
			t.Fatalf("Reply(%q): %v", tc.message, err)
		}
		if got.Response != tc.want {
			t.Fatalf("Reply(%q): got %q want %q", tc.message, got.Response, tc.want)
		}
	}

	history, err := svc.History(context.Background(), userID, 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != len(cases) {
		t.Fatalf("history length: got %d want %d", len(history), len(cases))
	}
}

func TestChatReplyRequiresMessage(t *testing.T) {
	svc, err := NewChatService(testLogger(t), &memChatRepo{}, "")
	if err != nil {
		t.Fatalf("NewChatService: %v", err)
	}
	_, err = svc.Reply(context.Background(), uuid.New(), "   ")
	if err == nil {
		t.Fatal("expected error for blank message")
	}
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("blank message should read as an invalid argument, got %v", err)
	}
}

func TestChatRulesFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := []byte(`
rules:
  - keywords: ["invoice"]
    response: "Billing questions go to the billing tab."
fallback: "Sorry, I did not catch that."
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	svc, err := NewChatService(testLogger(t), &memChatRepo{}, path)
	if err != nil {
		t.Fatalf("NewChatService: %v", err)
	}

	got, err := svc.Reply(context.Background(), uuid.New(), "where is my invoice?")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got.Response != "Billing questions go to the billing tab." {
		t.Fatalf("custom rule not applied: %q", got.Response)
	}

	got, err = svc.Reply(context.Background(), uuid.New(), "hello")
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got.Response != "Sorry, I did not catch that." {
		t.Fatalf("custom fallback not applied: %q", got.Response)
	}
}
