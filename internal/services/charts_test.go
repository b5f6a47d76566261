package services

import (
	"bytes"
	"testing"

	"github.com/yungbote/therapulse-backend/internal/clients/transcribe"
)

func sampleTimeline() []EmotionPoint {
	return []EmotionPoint{
		{TimeSeconds: 0, Label: "neutral", Confidence: 0.5, FaceFound: true},
		{TimeSeconds: 1, Label: "happy", Confidence: 0.9, FaceFound: true},
		{TimeSeconds: 2, Label: "happy", Confidence: 0.8, FaceFound: true},
		{TimeSeconds: 3, Label: "sad", Confidence: 0.7, FaceFound: false},
	}
}

func TestChartsAreDeterministic(t *testing.T) {
	cs := NewChartService(testLogger(t), "")

	points := sampleTimeline()
	dist := distribution(points)
	sentiments := []transcribe.Sentiment{
		{Sentiment: "POSITIVE", Confidence: 0.9, StartMS: 0, EndMS: 2000},
		{Sentiment: "NEGATIVE", Confidence: 0.6, StartMS: 2000, EndMS: 3000},
	}
	utterances := []transcribe.Utterance{
		{Speaker: "A", StartMS: 0, EndMS: 2000},
		{Speaker: "B", StartMS: 2000, EndMS: 3000},
	}

	render := func() [][]byte {
		out := [][]byte{}
		for _, png := range []func() ([]byte, error){
			func() ([]byte, error) { return cs.EncodePNG(cs.EmotionTimelineChart(points)) },
			func() ([]byte, error) { return cs.EncodePNG(cs.EmotionDistributionChart(dist)) },
			func() ([]byte, error) { return cs.EncodePNG(cs.SentimentDistributionChart(sentiments)) },
			func() ([]byte, error) { return cs.EncodePNG(cs.SentimentTimelineChart(sentiments)) },
			func() ([]byte, error) { return cs.EncodePNG(cs.SpeakerShareChart(utterances)) },
		} {
			b, err := png()
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if len(b) == 0 {
				t.Fatal("render produced empty png")
			}
			out = append(out, b)
		}
		return out
	}

	first := render()
	second := render()
	for i := range first {
		if !bytes.Equal(first[i], second[i]) {
			t.Fatalf("chart %d differs between identical renders", i)
		}
	}
}

func TestEmotionDistributionChartHandlesEmptyInput(t *testing.T) {
	cs := NewChartService(testLogger(t), "")
	img := cs.EmotionDistributionChart(map[string]float64{})
	if img == nil {
		t.Fatal("nil image")
	}
	b, err := cs.EncodePNG(img)
	if err != nil || len(b) == 0 {
		t.Fatalf("encode: err=%v len=%d", err, len(b))
	}
}

func TestSentimentDistributionChartHandlesEmptyInput(t *testing.T) {
	cs := NewChartService(testLogger(t), "")
	img := cs.SentimentDistributionChart(nil)
	if img == nil {
		t.Fatal("nil image")
	}
	b, err := cs.EncodePNG(img)
	if err != nil || len(b) == 0 {
		t.Fatalf("encode: err=%v len=%d", err, len(b))
	}
}
