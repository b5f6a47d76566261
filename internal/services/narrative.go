package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/therapulse-backend/internal/clients/transcribe"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// TextGenerator produces free text from a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// NarrativeInput carries everything the summary prompt is built from.
type NarrativeInput struct {
	PatientName    string
	SessionTitle   string
	SessionDate    string
	TranscriptText string
	Utterances     []transcribe.Utterance
	Sentiments     []transcribe.Sentiment
	Emotions       EmotionTimeline
}

type NarrativeService interface {
	// SessionSummary returns generated narrative text. When generation fails
	// it returns a deterministic fallback summary together with an error
	// wrapping ErrGenerationFailed, so callers can keep the fallback and
	// still observe the failure.
	SessionSummary(ctx context.Context, in NarrativeInput) (string, error)
}

type narrativeService struct {
	log       *logger.Logger
	generator TextGenerator
}

func NewNarrativeService(log *logger.Logger, generator TextGenerator) NarrativeService {
	return &narrativeService{
		log:       log.With("service", "NarrativeService"),
		generator: generator,
	}
}

const maxTranscriptPromptChars = 12000

func (ns *narrativeService) SessionSummary(ctx context.Context, in NarrativeInput) (string, error) {
	prompt := buildSummaryPrompt(in)

	if ns.generator != nil {
		text, err := ns.generator.GenerateText(ctx, prompt)
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
		if err != nil {
			ns.log.Warn("Narrative generation failed, using fallback summary", "error", err)
			return fallbackSummary(in), Wrap(ErrGenerationFailed, err)
		}
	}
	return fallbackSummary(in), Wrap(ErrGenerationFailed, fmt.Errorf("no generator configured"))
}

func buildSummaryPrompt(in NarrativeInput) string {
	transcript := in.TranscriptText
	if len(transcript) > maxTranscriptPromptChars {
		transcript = transcript[:maxTranscriptPromptChars]
	}

	var sb strings.Builder
	sb.WriteString("You are assisting a licensed therapist. Write a concise clinical summary ")
	sb.WriteString("of the following therapy session. Cover the patient's emotional state, ")
	sb.WriteString("notable moments, and suggested follow-up themes. Do not invent facts. ")
	sb.WriteString("Respond in plain prose only, with no markdown, headings, or bullet lists.\n\n")
	fmt.Fprintf(&sb, "Session: %s (%s)\n", in.SessionTitle, in.SessionDate)
	fmt.Fprintf(&sb, "Patient: %s\n\n", in.PatientName)

	if in.Emotions.Dominant != "" {
		fmt.Fprintf(&sb, "Dominant facial emotion: %s\n", in.Emotions.Dominant)
	}
	if dist := formatDistribution(in.Emotions.Distribution); dist != "" {
		fmt.Fprintf(&sb, "Emotion distribution: %s\n", dist)
	}
	if summary := sentimentCounts(in.Sentiments); summary != "" {
		fmt.Fprintf(&sb, "Speech sentiment: %s\n", summary)
	}
	sb.WriteString("\nTranscript:\n")
	sb.WriteString(transcript)
	return sb.String()
}

func fallbackSummary(in NarrativeInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Automated summary for %s", in.SessionTitle)
	if in.SessionDate != "" {
		fmt.Fprintf(&sb, " on %s", in.SessionDate)
	}
	sb.WriteString(". ")
	if in.Emotions.Dominant != "" {
		fmt.Fprintf(&sb, "The dominant facial emotion across the session was %s. ", in.Emotions.Dominant)
	}
	if summary := sentimentCounts(in.Sentiments); summary != "" {
		fmt.Fprintf(&sb, "Speech sentiment spans: %s. ", summary)
	}
	sb.WriteString("A detailed narrative could not be generated; please review the transcript and charts directly.")
	return sb.String()
}

func formatDistribution(dist map[string]float64) string {
	if len(dist) == 0 {
		return ""
	}
	labels := make([]string, 0, len(dist))
	for label := range dist {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		if dist[label] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %.0f%%", label, dist[label]*100))
	}
	return strings.Join(parts, ", ")
}

func sentimentCounts(sentiments []transcribe.Sentiment) string {
	if len(sentiments) == 0 {
		return ""
	}
	counts := map[string]int{}
	for _, s := range sentiments {
		counts[strings.ToUpper(s.Sentiment)]++
	}
	parts := []string{}
	for _, key := range []string{"POSITIVE", "NEUTRAL", "NEGATIVE"} {
		if counts[key] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[key], strings.ToLower(key)))
		}
	}
	return strings.Join(parts, ", ")
}
