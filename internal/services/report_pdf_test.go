package services

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"

	"github.com/yungbote/therapulse-backend/internal/clients/transcribe"
)

func pdfPageCount(t *testing.T, out []byte) int {
	t.Helper()
	return bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages"))
}

func renderTestInsights(t *testing.T) InsightsData {
	t.Helper()
	cs := NewChartService(testLogger(t), "")
	points := sampleTimeline()
	sentiments := []transcribe.Sentiment{
		{Sentiment: "POSITIVE", Confidence: 0.8, StartMS: 0, EndMS: 1500},
		{Sentiment: "NEGATIVE", Confidence: 0.7, StartMS: 1500, EndMS: 2500},
	}

	encode := func(b []byte, err error) []byte {
		if err != nil {
			t.Fatalf("encode chart: %v", err)
		}
		return b
	}

	return InsightsData{
		PatientName:  "Jane Roe",
		SessionTitle: "Weekly Session",
		SessionDate:  "2026-02-01",
		Duration:     "50 min",

		EmotionDistributionPNG:   encode(cs.EncodePNG(cs.EmotionDistributionChart(distribution(points)))),
		EmotionTimelinePNG:       encode(cs.EncodePNG(cs.EmotionTimelineChart(points))),
		SentimentDistributionPNG: encode(cs.EncodePNG(cs.SentimentDistributionChart(sentiments))),
		SentimentTimelinePNG:     encode(cs.EncodePNG(cs.SentimentTimelineChart(sentiments))),
		SpeakerSharePNG: encode(cs.EncodePNG(cs.SpeakerShareChart([]transcribe.Utterance{
			{Speaker: "A", StartMS: 0, EndMS: 1000},
			{Speaker: "B", StartMS: 1000, EndMS: 1500},
		}))),
	}
}

func TestBuildInsightsDocumentHasTwoPages(t *testing.T) {
	rs := NewReportService(testLogger(t))
	out, err := rs.BuildInsightsDocument(renderTestInsights(t))
	if err != nil {
		t.Fatalf("BuildInsightsDocument: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty pdf output")
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a pdf: %q", out[:8])
	}
	if pages := pdfPageCount(t, out); pages != 2 {
		t.Fatalf("expected 2 pages, found %d page objects", pages)
	}
}

func TestBuildInsightsDocumentMissingChartFails(t *testing.T) {
	rs := NewReportService(testLogger(t))
	data := renderTestInsights(t)
	data.SentimentDistributionPNG = nil
	if _, err := rs.BuildInsightsDocument(data); err == nil {
		t.Fatal("expected error for missing chart")
	}
}

func TestBuildSessionReportIsTextDocument(t *testing.T) {
	rs := NewReportService(testLogger(t))
	out, err := rs.BuildSessionReport(ReportData{
		PatientName:  "Jane Roe",
		SessionTitle: "Weekly Session",
		SessionDate:  "2026-02-01",
		Duration:     "50 min",
		Narrative:    "The patient presented calm and engaged throughout the session.",
		Utterances: []transcribe.Utterance{
			{Speaker: "A", Text: "How was your week?", StartMS: 0, EndMS: 2000},
			{Speaker: "B", Text: "Better than last time.", StartMS: 2000, EndMS: 4500},
		},
	})
	if err != nil {
		t.Fatalf("BuildSessionReport: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatal("output is not a pdf")
	}
	if pages := pdfPageCount(t, out); pages < 1 {
		t.Fatalf("expected at least 1 page, found %d page objects", pages)
	}
	// A text report embeds no chart images.
	if bytes.Contains(out, []byte("/Subtype /Image")) {
		t.Fatal("report should not embed images")
	}
}

func TestBuildSessionReportLongTranscriptPaginates(t *testing.T) {
	rs := NewReportService(testLogger(t))
	utterances := make([]transcribe.Utterance, 120)
	for i := range utterances {
		utterances[i] = transcribe.Utterance{
			Speaker: "A",
			Text:    "I have been thinking a lot about what we discussed last week and how it applies.",
			StartMS: i * 4000,
			EndMS:   i*4000 + 3500,
		}
	}
	out, err := rs.BuildSessionReport(ReportData{
		PatientName:  "Jane Roe",
		SessionTitle: "Weekly Session",
		SessionDate:  "2026-02-01",
		Narrative:    "A long and detailed session.",
		Utterances:   utterances,
	})
	if err != nil {
		t.Fatalf("BuildSessionReport: %v", err)
	}
	if pages := pdfPageCount(t, out); pages < 2 {
		t.Fatalf("long transcript should spill onto more pages, found %d", pages)
	}
}

// fpdf reports page count directly; sanity-check our layout assumptions.
func TestFpdfPageCountBaseline(t *testing.T) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.AddPage()
	if pdf.PageCount() != 2 {
		t.Fatalf("PageCount: %d", pdf.PageCount())
	}
}
