package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/yungbote/therapulse-backend/internal/clients/gcp"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// stubClassifier keys results on frame content, which the media fake writes as
// "frame@<seconds>". Unknown frames read neutral with no face.
type stubClassifier struct {
	byContent map[string]gcp.FaceEmotion
	failOn    map[string]bool
}

func (s *stubClassifier) ClassifyFrame(_ context.Context, img []byte) (gcp.FaceEmotion, error) {
	if s.failOn[string(img)] {
		return gcp.FaceEmotion{}, fmt.Errorf("classifier unavailable")
	}
	if e, ok := s.byContent[string(img)]; ok {
		return e, nil
	}
	return gcp.FaceEmotion{Label: "neutral", FaceFound: false}, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func frameKey(ts float64) string {
	return fmt.Sprintf("frame@%.3f", ts)
}

// sampleTimestamps mirrors the midpoint spacing Sample uses for a 3 second
// probe, so the stubs can be keyed per frame.
func sampleTimestamps(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 3.0 * (float64(i) + 0.5) / float64(n)
	}
	return out
}

func TestSampleEvenlySpacedTimestamps(t *testing.T) {
	ts := sampleTimestamps(5)
	labels := []string{"happy", "happy", "sad", "neutral", "happy"}
	byContent := map[string]gcp.FaceEmotion{}
	for i, at := range ts {
		byContent[frameKey(at)] = gcp.FaceEmotion{Label: labels[i], Confidence: 0.9, FaceFound: true}
	}

	svc := NewEmotionService(testLogger(t), &stubClassifier{byContent: byContent}, &fakeMediaTools{t: t})
	tl, err := svc.Sample(context.Background(), "video.mp4", 5)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}

	if len(tl.Points) != 5 {
		t.Fatalf("expected 5 points, got %d", len(tl.Points))
	}
	for i, p := range tl.Points {
		if p.TimeSeconds != ts[i] {
			t.Fatalf("point %d time: got %v want %v", i, p.TimeSeconds, ts[i])
		}
		if p.Label != labels[i] {
			t.Fatalf("point %d label: got %q want %q", i, p.Label, labels[i])
		}
	}

	if got := tl.Distribution["happy"]; got != 0.6 {
		t.Fatalf("happy share: got %v want 0.6", got)
	}
	if got := tl.Distribution["sad"]; got != 0.2 {
		t.Fatalf("sad share: got %v want 0.2", got)
	}
	if len(tl.Distribution) != len(EmotionLabels) {
		t.Fatalf("distribution must cover all labels, got %d", len(tl.Distribution))
	}
	if tl.Dominant != "happy" {
		t.Fatalf("dominant: got %q want happy", tl.Dominant)
	}
}

func TestSampleSkipsFailedFrames(t *testing.T) {
	ts := sampleTimestamps(5)
	byContent := map[string]gcp.FaceEmotion{}
	for _, at := range ts {
		byContent[frameKey(at)] = gcp.FaceEmotion{Label: "happy", Confidence: 0.9, FaceFound: true}
	}
	failing := frameKey(ts[2])

	svc := NewEmotionService(testLogger(t), &stubClassifier{
		byContent: byContent,
		failOn:    map[string]bool{failing: true},
	}, &fakeMediaTools{t: t})
	tl, err := svc.Sample(context.Background(), "video.mp4", 5)
	if err != nil {
		t.Fatalf("a single bad frame must not fail the batch: %v", err)
	}

	if len(tl.Points) != 4 {
		t.Fatalf("expected failed frame to be dropped, got %d points", len(tl.Points))
	}
	for _, p := range tl.Points {
		if p.TimeSeconds == ts[2] {
			t.Fatalf("failed frame leaked into points: %+v", p)
		}
	}
	// The distribution normalizes over the 4 surviving frames.
	if got := tl.Distribution["happy"]; got != 1.0 {
		t.Fatalf("happy share over surviving frames: got %v want 1.0", got)
	}
}

type zeroFPSMedia struct {
	fakeMediaTools
}

func (z *zeroFPSMedia) ProbeVideo(_ context.Context, _ string) (VideoProbe, error) {
	return VideoProbe{}, nil
}

func TestSampleZeroFPSYieldsEmptyTimeline(t *testing.T) {
	svc := NewEmotionService(testLogger(t), &stubClassifier{}, &zeroFPSMedia{fakeMediaTools{t: t}})
	tl, err := svc.Sample(context.Background(), "video.mp4", 5)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(tl.Points) != 0 {
		t.Fatalf("expected no points for an unprobable source, got %d", len(tl.Points))
	}
	if tl.Dominant != "neutral" {
		t.Fatalf("dominant for empty timeline: got %q", tl.Dominant)
	}
	if len(tl.Distribution) != len(EmotionLabels) {
		t.Fatalf("empty timeline still carries the full label set, got %d", len(tl.Distribution))
	}
}

func TestSampleDefaultsToFiveFrames(t *testing.T) {
	svc := NewEmotionService(testLogger(t), &stubClassifier{}, &fakeMediaTools{t: t})
	tl, err := svc.Sample(context.Background(), "video.mp4", 0)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(tl.Points) != DefaultFrameSamples {
		t.Fatalf("expected %d points by default, got %d", DefaultFrameSamples, len(tl.Points))
	}
}
