package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type scriptedGenerator struct {
	text   string
	err    error
	prompt string
}

func (s *scriptedGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func narrativeInput() NarrativeInput {
	return NarrativeInput{
		PatientName:    "Jordan Shaw",
		SessionTitle:   "Week 4 check-in",
		SessionDate:    "2025-03-10",
		TranscriptText: "Therapist: how was your week? Patient: better than last one.",
	}
}

func TestSessionSummaryPromptDemandsPlainText(t *testing.T) {
	gen := &scriptedGenerator{text: "A calm session."}
	svc := NewNarrativeService(testLogger(t), gen)

	if _, err := svc.SessionSummary(context.Background(), narrativeInput()); err != nil {
		t.Fatalf("SessionSummary: %v", err)
	}
	if !strings.Contains(gen.prompt, "no markdown") {
		t.Fatalf("prompt must forbid markdown output:\n%s", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "plain prose") {
		t.Fatalf("prompt must demand plain prose:\n%s", gen.prompt)
	}
}

func TestSessionSummaryPromptSkipsAbsentEmotionData(t *testing.T) {
	gen := &scriptedGenerator{text: "A calm session."}
	svc := NewNarrativeService(testLogger(t), gen)

	if _, err := svc.SessionSummary(context.Background(), narrativeInput()); err != nil {
		t.Fatalf("SessionSummary: %v", err)
	}
	if strings.Contains(gen.prompt, "Dominant facial emotion") {
		t.Fatalf("prompt should omit emotion lines when no frames were analyzed:\n%s", gen.prompt)
	}
}

func TestSessionSummaryFallbackOnGeneratorError(t *testing.T) {
	gen := &scriptedGenerator{err: fmt.Errorf("quota exceeded")}
	svc := NewNarrativeService(testLogger(t), gen)

	summary, err := svc.SessionSummary(context.Background(), narrativeInput())
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if strings.TrimSpace(summary) == "" {
		t.Fatal("fallback summary must not be empty")
	}
}
