package gemini

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestTextFromResponseJoinsPartsWithNewlines(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{
				genai.Text("First paragraph."),
				genai.Text("Second paragraph."),
			}},
		}},
	}
	got := textFromResponse(resp)
	want := "First paragraph.\nSecond paragraph."
	if got != want {
		t.Fatalf("joined text: got %q want %q", got, want)
	}
}

func TestTextFromResponseZeroCandidatesFallsBack(t *testing.T) {
	if got := textFromResponse(&genai.GenerateContentResponse{}); got != FallbackText {
		t.Fatalf("expected fallback for zero candidates, got %q", got)
	}
	if got := textFromResponse(nil); got != FallbackText {
		t.Fatalf("expected fallback for nil response, got %q", got)
	}
}

func TestTextFromResponseNoTextPartsFallsBack(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("   ")}},
		}},
	}
	if got := textFromResponse(resp); got != FallbackText {
		t.Fatalf("expected fallback for blank parts, got %q", got)
	}
}
