package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/therapulse-backend/internal/clients/gcp"
	"github.com/yungbote/therapulse-backend/internal/clients/transcribe"
	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// Transcriber is the slice of the transcription client the pipeline needs.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (*transcribe.Transcript, error)
}

// InsightRequest identifies the session and which artifact to produce.
type InsightRequest struct {
	TherapistID uuid.UUID
	PatientID   uuid.UUID
	SessionID   uuid.UUID
	Kind        repos.ArtifactKind

	// OnProgress, when set, receives coarse stage updates for job bookkeeping.
	OnProgress func(stage string, percent int)
}

// Pipeline stage names, surfaced through OnProgress and job rows.
const (
	StageDownload   = "download"
	StageAudio      = "audio"
	StageTranscribe = "transcribe"
	StageEmotion    = "emotion"
	StageNarrative  = "narrative"
	StageRender     = "render"
	StageUpload     = "upload"
	StagePersist    = "persist"
)

// InsightService runs the full analysis pipeline for a session and produces
// either the charts report or the narrative insights PDF.
//
// Generation is idempotent per (session, kind): once an artifact URL is
// recorded on the session row, later calls return it without recomputing.
// Concurrent calls in one process collapse through singleflight; across
// processes an optional redis lock prevents duplicate work.
type InsightService interface {
	Generate(ctx context.Context, req InsightRequest) (string, error)
}

type insightService struct {
	log         *logger.Logger
	patientRepo repos.PatientRepo
	sessionRepo repos.SessionRepo
	bucket      gcp.BucketService
	media       MediaToolsService
	transcriber Transcriber
	emotions    EmotionService
	narrative   NarrativeService
	charts      ChartService
	reports     ReportService

	rdb *redis.Client // nil disables the distributed lock

	group singleflight.Group

	frameSamples int
	lockTTL      time.Duration
}

func NewInsightService(
	log *logger.Logger,
	patientRepo repos.PatientRepo,
	sessionRepo repos.SessionRepo,
	bucket gcp.BucketService,
	media MediaToolsService,
	transcriber Transcriber,
	emotions EmotionService,
	narrative NarrativeService,
	charts ChartService,
	reports ReportService,
	rdb *redis.Client,
) InsightService {
	return &insightService{
		log:          log.With("service", "InsightService"),
		patientRepo:  patientRepo,
		sessionRepo:  sessionRepo,
		bucket:       bucket,
		media:        media,
		transcriber:  transcriber,
		emotions:     emotions,
		narrative:    narrative,
		charts:       charts,
		reports:      reports,
		rdb:          rdb,
		frameSamples: DefaultFrameSamples,
		lockTTL:      15 * time.Minute,
	}
}

func (is *insightService) Generate(ctx context.Context, req InsightRequest) (string, error) {
	if req.Kind != repos.ArtifactReport && req.Kind != repos.ArtifactInsights {
		return "", fmt.Errorf("unknown artifact kind %q", req.Kind)
	}

	key := fmt.Sprintf("%s:%s", req.SessionID, req.Kind)
	url, err, _ := is.group.Do(key, func() (any, error) {
		return is.generate(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return url.(string), nil
}

func (is *insightService) generate(ctx context.Context, req InsightRequest) (string, error) {
	patient, err := is.patientRepo.GetByID(ctx, nil, req.TherapistID, req.PatientID)
	if err != nil {
		return "", fmt.Errorf("failed to load patient: %w", err)
	}
	if patient == nil {
		return "", ErrPatientNotFound
	}

	session, err := is.sessionRepo.GetByID(ctx, nil, req.PatientID, req.SessionID)
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return "", ErrSessionNotFound
	}
	if cached := cachedArtifactURL(session, req.Kind); cached != "" {
		return cached, nil
	}

	unlock, err := is.acquireLock(ctx, req)
	if err != nil {
		return "", err
	}
	defer unlock()

	// Another worker may have finished while we waited on the lock.
	session, err = is.sessionRepo.GetByID(ctx, nil, req.PatientID, req.SessionID)
	if err != nil {
		return "", fmt.Errorf("failed to reload session: %w", err)
	}
	if session == nil {
		return "", ErrSessionNotFound
	}
	if cached := cachedArtifactURL(session, req.Kind); cached != "" {
		return cached, nil
	}

	return is.runPipeline(ctx, req, patient, session)
}

func cachedArtifactURL(session *types.Session, kind repos.ArtifactKind) string {
	switch kind {
	case repos.ArtifactReport:
		return session.ReportURL
	case repos.ArtifactInsights:
		return session.InsightsURL
	}
	return ""
}

// acquireLock takes the cross-process lock for this session+kind, waiting out
// a holder already running the same pipeline. Without redis it is a no-op.
func (is *insightService) acquireLock(ctx context.Context, req InsightRequest) (func(), error) {
	if is.rdb == nil {
		return func() {}, nil
	}
	lockKey := fmt.Sprintf("insight:lock:%s:%s", req.SessionID, req.Kind)
	for {
		ok, err := is.rdb.SetNX(ctx, lockKey, "1", is.lockTTL).Result()
		if err != nil {
			// Redis being down should not block generation entirely.
			is.log.Warn("Distributed lock unavailable, proceeding without it", "error", err)
			return func() {}, nil
		}
		if ok {
			return func() {
				if err := is.rdb.Del(context.Background(), lockKey).Err(); err != nil {
					is.log.Warn("Failed to release insight lock", "key", lockKey, "error", err)
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (is *insightService) runPipeline(ctx context.Context, req InsightRequest, patient *types.Patient, session *types.Session) (string, error) {
	progress := req.OnProgress
	if progress == nil {
		progress = func(string, int) {}
	}

	scratch, cleanup, err := is.media.ScratchDir(ctx, "insight")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch dir: %w", err)
	}
	defer cleanup()

	// Download the source video.
	progress(StageDownload, 5)
	videoPath := filepath.Join(scratch, "source"+filepath.Ext(session.VideoKey))
	if err := is.downloadVideo(ctx, session.VideoKey, videoPath); err != nil {
		return "", Wrap(ErrDownloadFailed, err)
	}

	// Extract and transcribe audio.
	progress(StageAudio, 15)
	audioPath, err := is.media.ExtractAudio(ctx, videoPath, filepath.Join(scratch, "audio.wav"), AudioExtractOptions{})
	if err != nil {
		return "", Wrap(ErrAudioExtractionFailed, err)
	}

	progress(StageTranscribe, 30)
	transcript, err := is.transcribeAudio(ctx, audioPath)
	if err != nil {
		return "", err
	}
	// Sentiment aggregates track the session subject only; the speaker-share
	// chart still sees every diarized speaker.
	sentiments := targetSpeakerSentiments(transcript)

	// Assemble the requested artifact. The insights document is built from
	// chart renderings of both video and audio analysis; the report is a
	// narrative text document and never touches the frame pipeline.
	var pdfBytes []byte
	switch req.Kind {
	case repos.ArtifactInsights:
		progress(StageEmotion, 55)
		timeline, tErr := is.emotions.Sample(ctx, videoPath, is.frameSamples)
		if tErr != nil {
			return "", tErr
		}
		progress(StageRender, 75)
		pdfBytes, err = is.renderInsights(patient, session, transcript, sentiments, timeline)
	case repos.ArtifactReport:
		progress(StageNarrative, 60)
		narrative, narrErr := is.narrative.SessionSummary(ctx, NarrativeInput{
			PatientName:    patient.Name,
			SessionTitle:   session.Title,
			SessionDate:    session.Date,
			TranscriptText: transcript.Text,
			Utterances:     transcript.Utterances,
			Sentiments:     sentiments,
		})
		if narrErr != nil {
			// The fallback narrative is still usable; the failure is logged,
			// not fatal.
			is.log.Warn("Using fallback narrative", "session_id", session.ID, "error", narrErr)
		}
		progress(StageRender, 80)
		pdfBytes, err = is.reports.BuildSessionReport(ReportData{
			PatientName:  patient.Name,
			SessionTitle: session.Title,
			SessionDate:  session.Date,
			Duration:     session.Duration,
			Narrative:    narrative,
			Utterances:   transcript.Utterances,
		})
	}
	if err != nil {
		return "", err
	}

	// Upload, then record the URL on the session row.
	progress(StageUpload, 90)
	artifactKey := fmt.Sprintf("sessions/%s/%s/%s.pdf", req.PatientID, req.SessionID, req.Kind)
	if err := is.bucket.UploadFile(ctx, gcp.BucketCategoryArtifact, artifactKey, bytes.NewReader(pdfBytes)); err != nil {
		return "", Wrap(ErrUploadFailed, err)
	}
	artifactURL := is.bucket.GetPublicURL(gcp.BucketCategoryArtifact, artifactKey)

	progress(StagePersist, 95)
	ok, err := is.sessionRepo.SetArtifact(ctx, nil, req.PatientID, req.SessionID, req.Kind, artifactURL, time.Now().UTC())
	if err != nil || !ok {
		// The session vanished under us; the uploaded object must not orphan.
		if delErr := is.bucket.DeleteFile(ctx, gcp.BucketCategoryArtifact, artifactKey); delErr != nil {
			is.log.Warn("Failed to delete orphaned artifact", "key", artifactKey, "error", delErr)
		}
		if err != nil {
			return "", Wrap(ErrPersistFailed, err)
		}
		return "", Wrap(ErrPersistFailed, fmt.Errorf("session %s no longer exists", req.SessionID))
	}

	progress(StagePersist, 100)
	is.log.Info("Generated session artifact",
		"session_id", req.SessionID, "kind", string(req.Kind), "url", artifactURL)
	return artifactURL, nil
}

func (is *insightService) downloadVideo(ctx context.Context, videoKey, destPath string) error {
	if videoKey == "" {
		return fmt.Errorf("session has no stored video")
	}
	rc, err := is.bucket.DownloadFile(ctx, gcp.BucketCategoryMedia, videoKey)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return err
	}
	return f.Sync()
}

func (is *insightService) transcribeAudio(ctx context.Context, audioPath string) (*transcribe.Transcript, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, Wrap(ErrTranscriptionFailed, err)
	}
	defer f.Close()

	transcript, err := is.transcriber.Transcribe(ctx, f)
	if err != nil {
		if errors.Is(err, transcribe.ErrPollTimeout) {
			return nil, Wrap(ErrTranscriptionTimedOut, err)
		}
		return nil, Wrap(ErrTranscriptionFailed, err)
	}
	return transcript, nil
}

// targetSpeakerSentiments keeps only the sentiment spans of the session
// subject. The subject is the diarized speaker with the most talk time, ties
// broken by label order so reruns pick the same speaker.
func targetSpeakerSentiments(transcript *transcribe.Transcript) []transcribe.Sentiment {
	totals := make(map[string]int, 4)
	for _, u := range transcript.Utterances {
		totals[u.Speaker] += u.EndMS - u.StartMS
	}
	speakers := make([]string, 0, len(totals))
	for s := range totals {
		speakers = append(speakers, s)
	}
	sort.Strings(speakers)

	target := ""
	best := -1
	for _, s := range speakers {
		if totals[s] > best {
			best = totals[s]
			target = s
		}
	}
	if target == "" {
		return transcript.Sentiments
	}

	out := make([]transcribe.Sentiment, 0, len(transcript.Sentiments))
	for _, sn := range transcript.Sentiments {
		if sn.Speaker == target {
			out = append(out, sn)
		}
	}
	return out
}

func (is *insightService) renderInsights(patient *types.Patient, session *types.Session, transcript *transcribe.Transcript, sentiments []transcribe.Sentiment, timeline EmotionTimeline) ([]byte, error) {
	encode := func(name string, render func() ([]byte, error)) ([]byte, error) {
		png, err := render()
		if err != nil {
			return nil, Wrap(ErrRenderFailed, fmt.Errorf("%s chart: %w", name, err))
		}
		return png, nil
	}

	emotionDistPNG, err := encode("emotion distribution", func() ([]byte, error) {
		return is.charts.EncodePNG(is.charts.EmotionDistributionChart(timeline.Distribution))
	})
	if err != nil {
		return nil, err
	}
	emotionTimelinePNG, err := encode("emotion timeline", func() ([]byte, error) {
		return is.charts.EncodePNG(is.charts.EmotionTimelineChart(timeline.Points))
	})
	if err != nil {
		return nil, err
	}
	sentimentDistPNG, err := encode("sentiment distribution", func() ([]byte, error) {
		return is.charts.EncodePNG(is.charts.SentimentDistributionChart(sentiments))
	})
	if err != nil {
		return nil, err
	}
	sentimentPNG, err := encode("sentiment timeline", func() ([]byte, error) {
		return is.charts.EncodePNG(is.charts.SentimentTimelineChart(sentiments))
	})
	if err != nil {
		return nil, err
	}
	speakerPNG, err := encode("speaker share", func() ([]byte, error) {
		return is.charts.EncodePNG(is.charts.SpeakerShareChart(transcript.Utterances))
	})
	if err != nil {
		return nil, err
	}

	return is.reports.BuildInsightsDocument(InsightsData{
		PatientName:              patient.Name,
		SessionTitle:             session.Title,
		SessionDate:              session.Date,
		Duration:                 session.Duration,
		EmotionDistributionPNG:   emotionDistPNG,
		EmotionTimelinePNG:       emotionTimelinePNG,
		SentimentDistributionPNG: sentimentDistPNG,
		SentimentTimelinePNG:     sentimentPNG,
		SpeakerSharePNG:          speakerPNG,
	})
}
