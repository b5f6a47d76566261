package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/yungbote/therapulse-backend/internal/clients/transcribe"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// ReportData feeds the narrative session report, a text document built from
// the transcript and the generated summary.
type ReportData struct {
	PatientName  string
	SessionTitle string
	SessionDate  string
	Duration     string

	Narrative  string
	Utterances []transcribe.Utterance
}

// InsightsData is everything the two-page insights document is assembled
// from: rendered chart PNGs, video charts on page one and audio charts on
// page two.
type InsightsData struct {
	PatientName  string
	SessionTitle string
	SessionDate  string
	Duration     string

	EmotionDistributionPNG   []byte
	EmotionTimelinePNG       []byte
	SentimentDistributionPNG []byte
	SentimentTimelinePNG     []byte
	SpeakerSharePNG          []byte
}

type ReportService interface {
	// BuildSessionReport renders the narrative report: the clinical summary
	// followed by a timestamped transcript appendix.
	BuildSessionReport(data ReportData) ([]byte, error)
	// BuildInsightsDocument renders the charts PDF: page one carries the
	// video (facial emotion) charts, page two the audio (speech) charts.
	BuildInsightsDocument(data InsightsData) ([]byte, error)
}

type reportService struct {
	log *logger.Logger
}

func NewReportService(log *logger.Logger) ReportService {
	return &reportService{log: log.With("service", "ReportService")}
}

func (rs *reportService) BuildSessionReport(data ReportData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	// Fixed metadata keeps identical inputs byte-identical.
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetModificationDate(time.Unix(0, 0).UTC())
	pdf.SetTitle("Session Report", false)

	pdf.AddPage()
	writeHeader(pdf, "Session Report", data.PatientName, data.SessionTitle, data.SessionDate, data.Duration)

	writeSectionTitle(pdf, "Clinical Summary")
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 6, data.Narrative, "", "L", false)
	pdf.Ln(4)

	if len(data.Utterances) > 0 {
		writeSectionTitle(pdf, "Transcript")
		pdf.SetFont("Helvetica", "", 10)
		for _, u := range data.Utterances {
			line := fmt.Sprintf("[%s] Speaker %s: %s", formatMS(u.StartMS), u.Speaker, strings.TrimSpace(u.Text))
			pdf.MultiCell(0, 5, line, "", "L", false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, Wrap(ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

func (rs *reportService) BuildInsightsDocument(data InsightsData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetModificationDate(time.Unix(0, 0).UTC())
	pdf.SetTitle("Session Insights", false)

	pdf.AddPage()
	writeHeader(pdf, "Session Insights", data.PatientName, data.SessionTitle, data.SessionDate, data.Duration)
	writeSectionTitle(pdf, "Video Analysis")
	if err := embedPNG(pdf, "emotion_distribution", data.EmotionDistributionPNG); err != nil {
		return nil, Wrap(ErrRenderFailed, err)
	}
	if err := embedPNG(pdf, "emotion_timeline", data.EmotionTimelinePNG); err != nil {
		return nil, Wrap(ErrRenderFailed, err)
	}

	pdf.AddPage()
	writeSectionTitle(pdf, "Audio Analysis")
	if err := embedPNG(pdf, "sentiment_distribution", data.SentimentDistributionPNG); err != nil {
		return nil, Wrap(ErrRenderFailed, err)
	}
	if err := embedPNG(pdf, "sentiment_timeline", data.SentimentTimelinePNG); err != nil {
		return nil, Wrap(ErrRenderFailed, err)
	}
	if err := embedPNG(pdf, "speaker_share", data.SpeakerSharePNG); err != nil {
		return nil, Wrap(ErrRenderFailed, err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, Wrap(ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

func writeHeader(pdf *fpdf.Fpdf, title, patient, session, date, duration string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Patient: %s", patient), "", 1, "L", false, 0, "")
	line := fmt.Sprintf("Session: %s (%s)", session, date)
	if duration != "" {
		line += fmt.Sprintf(", duration %s", duration)
	}
	pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func writeSectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func embedPNG(pdf *fpdf.Fpdf, name string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("missing chart image %q", name)
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() {
		return fmt.Errorf("register image %q: %s", name, pdf.Error())
	}
	// Full-width image, aspect preserved via zero height.
	pdf.ImageOptions(name, 15, pdf.GetY(), 180, 0, false, opts, 0, "")
	if pdf.Err() {
		return fmt.Errorf("place image %q: %s", name, pdf.Error())
	}
	pdf.Ln(82)
	return nil
}

func formatMS(ms int) string {
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
