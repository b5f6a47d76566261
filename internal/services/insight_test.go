package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/therapulse-backend/internal/clients/gcp"
	"github.com/yungbote/therapulse-backend/internal/clients/transcribe"
	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
)

// ---------- fakes ----------

type fakePatientRepo struct {
	patient *types.Patient
}

func (f *fakePatientRepo) Create(_ context.Context, _ *gorm.DB, patients []*types.Patient) ([]*types.Patient, error) {
	return patients, nil
}

func (f *fakePatientRepo) GetByID(_ context.Context, _ *gorm.DB, therapistID, patientID uuid.UUID) (*types.Patient, error) {
	if f.patient != nil && f.patient.ID == patientID && f.patient.TherapistID == therapistID {
		return f.patient, nil
	}
	return nil, nil
}

func (f *fakePatientRepo) ListByTherapist(_ context.Context, _ *gorm.DB, _ uuid.UUID, _ string) ([]*types.Patient, error) {
	return nil, nil
}

func (f *fakePatientRepo) UpdateFields(_ context.Context, _ *gorm.DB, _, _ uuid.UUID, _ map[string]any) (bool, error) {
	return true, nil
}

func (f *fakePatientRepo) Delete(_ context.Context, _ *gorm.DB, _, _ uuid.UUID) (bool, error) {
	return true, nil
}

type fakeSessionRepo struct {
	mu            sync.Mutex
	session       *types.Session
	setArtifactOK bool
	artifactCalls int
}

func (f *fakeSessionRepo) Create(_ context.Context, _ *gorm.DB, sessions []*types.Session) ([]*types.Session, error) {
	return sessions, nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, _ *gorm.DB, patientID, sessionID uuid.UUID) (*types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session != nil && f.session.ID == sessionID && f.session.PatientID == patientID {
		copied := *f.session
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeSessionRepo) ListByPatient(_ context.Context, _ *gorm.DB, _ uuid.UUID) ([]*types.Session, error) {
	return nil, nil
}

func (f *fakeSessionRepo) UpdateFields(_ context.Context, _ *gorm.DB, _, _ uuid.UUID, _ map[string]any) (bool, error) {
	return true, nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, _ *gorm.DB, _, _ uuid.UUID) (bool, error) {
	return true, nil
}

func (f *fakeSessionRepo) SetArtifact(_ context.Context, _ *gorm.DB, patientID, sessionID uuid.UUID, kind repos.ArtifactKind, url string, generatedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifactCalls++
	if !f.setArtifactOK {
		return false, nil
	}
	if f.session != nil && f.session.ID == sessionID && f.session.PatientID == patientID {
		switch kind {
		case repos.ArtifactReport:
			f.session.ReportURL = url
			f.session.ReportGeneratedAt = &generatedAt
		case repos.ArtifactInsights:
			f.session.InsightsURL = url
			f.session.InsightsGeneratedAt = &generatedAt
		}
	}
	return true, nil
}

func (f *fakeSessionRepo) AppendNote(_ context.Context, _ *gorm.DB, note *types.SessionNote) (*types.SessionNote, error) {
	return note, nil
}

func (f *fakeSessionRepo) ListNotes(_ context.Context, _ *gorm.DB, _ uuid.UUID) ([]*types.SessionNote, error) {
	return nil, nil
}

type fakeBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	downloads int32
	deletes   []string

	failArtifactUploads bool
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}}
}

func (f *fakeBucket) key(category gcp.BucketCategory, key string) string {
	return string(category) + "/" + key
}

func (f *fakeBucket) UploadFile(_ context.Context, category gcp.BucketCategory, key string, file io.Reader) error {
	if f.failArtifactUploads && category == gcp.BucketCategoryArtifact {
		return fmt.Errorf("upload rejected")
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[f.key(category, key)] = data
	return nil
}

func (f *fakeBucket) DeleteFile(_ context.Context, category gcp.BucketCategory, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, f.key(category, key))
	f.deletes = append(f.deletes, f.key(category, key))
	return nil
}

func (f *fakeBucket) DownloadFile(_ context.Context, category gcp.BucketCategory, key string) (io.ReadCloser, error) {
	atomic.AddInt32(&f.downloads, 1)
	f.mu.Lock()
	data, ok := f.objects[f.key(category, key)]
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBucket) ListKeys(_ context.Context, category gcp.BucketCategory, prefix string) ([]string, error) {
	return nil, nil
}

func (f *fakeBucket) DeletePrefix(_ context.Context, _ gcp.BucketCategory, _ string) error {
	return nil
}

func (f *fakeBucket) GetPublicURL(category gcp.BucketCategory, key string) string {
	return "https://cdn.test/" + f.key(category, key)
}

type fakeMediaTools struct {
	t *testing.T
}

func (f *fakeMediaTools) AssertReady(_ context.Context) error { return nil }

func (f *fakeMediaTools) ProbeVideo(_ context.Context, _ string) (VideoProbe, error) {
	return VideoProbe{DurationSeconds: 3, FPS: 30, FrameCount: 90}, nil
}

func (f *fakeMediaTools) ExtractAudio(_ context.Context, _ string, outPath string, _ AudioExtractOptions) (string, error) {
	if err := os.WriteFile(outPath, []byte("RIFF fake wav"), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func (f *fakeMediaTools) ExtractFrameAt(_ context.Context, _ string, atSeconds float64, outPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	// The frame content encodes the timestamp so classifier stubs can key on it.
	if err := os.WriteFile(outPath, []byte(fmt.Sprintf("frame@%.3f", atSeconds)), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func (f *fakeMediaTools) ExtractThumbnail(_ context.Context, _ string, outPath string) (string, error) {
	if err := os.WriteFile(outPath, []byte("jpeg"), 0o644); err != nil {
		return "", err
	}
	return outPath, nil
}

func (f *fakeMediaTools) WriteTempFile(_ context.Context, data []byte, suffix string) (string, func(), error) {
	dir := f.t.TempDir()
	p := filepath.Join(dir, "tmp"+suffix)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", func() {}, err
	}
	return p, func() {}, nil
}

func (f *fakeMediaTools) ScratchDir(_ context.Context, _ string) (string, func(), error) {
	return f.t.TempDir(), func() {}, nil
}

type fakeTranscriber struct {
	calls int32
	delay time.Duration
	err   error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ io.Reader) (*transcribe.Transcript, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &transcribe.Transcript{
		ID:     "t1",
		Status: transcribe.StatusCompleted,
		Text:   "Therapist: how was your week? Patient: better than last one.",
		Utterances: []transcribe.Utterance{
			{Speaker: "A", Text: "how was your week?", Confidence: 0.93, StartMS: 0, EndMS: 1500},
			{Speaker: "B", Text: "better than last one.", Confidence: 0.91, StartMS: 1600, EndMS: 3000},
		},
		Sentiments: []transcribe.Sentiment{
			{Text: "how was your week?", Sentiment: "NEUTRAL", Confidence: 0.8, Speaker: "A", StartMS: 0, EndMS: 1500},
			{Text: "better than last one.", Sentiment: "POSITIVE", Confidence: 0.85, Speaker: "B", StartMS: 1600, EndMS: 3000},
		},
	}, nil
}

type fixedEmotionService struct {
	calls int32
}

func (f *fixedEmotionService) Sample(_ context.Context, _ string, n int) (EmotionTimeline, error) {
	atomic.AddInt32(&f.calls, 1)
	if n <= 0 {
		n = DefaultFrameSamples
	}
	points := make([]EmotionPoint, n)
	for i := range points {
		points[i] = EmotionPoint{TimeSeconds: float64(i), Label: "happy", Confidence: 0.9, FaceFound: true}
	}
	return EmotionTimeline{Points: points, Distribution: distribution(points), Dominant: dominant(points)}, nil
}

type fixedNarrative struct{}

func (fixedNarrative) SessionSummary(_ context.Context, in NarrativeInput) (string, error) {
	return "The patient presented in a stable mood.", nil
}

// ---------- harness ----------

type insightFixture struct {
	svc         InsightService
	patients    *fakePatientRepo
	sessions    *fakeSessionRepo
	bucket      *fakeBucket
	transcriber *fakeTranscriber
	emotions    *fixedEmotionService

	therapistID uuid.UUID
	patientID   uuid.UUID
	sessionID   uuid.UUID
}

func newInsightFixture(t *testing.T) *insightFixture {
	t.Helper()
	log := testLogger(t)

	therapistID := uuid.New()
	patientID := uuid.New()
	sessionID := uuid.New()

	patients := &fakePatientRepo{patient: &types.Patient{
		ID: patientID, TherapistID: therapistID, Name: "Jordan Shaw", Age: 34, Gender: "female", Status: "active",
	}}
	sessions := &fakeSessionRepo{
		session: &types.Session{
			ID: sessionID, PatientID: patientID, TherapistID: therapistID,
			Title: "Week 4 check-in", Date: "2025-03-10", Duration: "45:00",
			VideoKey: fmt.Sprintf("sessions/%s/%s.mp4", patientID, sessionID),
			VideoURL: "https://cdn.test/media/video.mp4",
		},
		setArtifactOK: true,
	}
	bucket := newFakeBucket()
	bucket.objects[bucket.key(gcp.BucketCategoryMedia, sessions.session.VideoKey)] = []byte("fake mp4 bytes")

	transcriber := &fakeTranscriber{}
	emotions := &fixedEmotionService{}

	svc := NewInsightService(
		log,
		patients,
		sessions,
		bucket,
		&fakeMediaTools{t: t},
		transcriber,
		emotions,
		fixedNarrative{},
		NewChartService(log, ""),
		NewReportService(log),
		nil,
	)
	return &insightFixture{
		svc: svc, patients: patients, sessions: sessions, bucket: bucket, transcriber: transcriber, emotions: emotions,
		therapistID: therapistID, patientID: patientID, sessionID: sessionID,
	}
}

func (fx *insightFixture) request(kind repos.ArtifactKind) InsightRequest {
	return InsightRequest{
		TherapistID: fx.therapistID,
		PatientID:   fx.patientID,
		SessionID:   fx.sessionID,
		Kind:        kind,
	}
}

// ---------- tests ----------

func TestInsightGenerateReport(t *testing.T) {
	fx := newInsightFixture(t)

	url, err := fx.svc.Generate(context.Background(), fx.request(repos.ArtifactReport))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	wantKey := fmt.Sprintf("artifact/sessions/%s/%s/report.pdf", fx.patientID, fx.sessionID)
	if url != "https://cdn.test/"+wantKey {
		t.Fatalf("unexpected artifact url: %s", url)
	}

	data, ok := fx.bucket.objects[wantKey]
	if !ok {
		t.Fatal("artifact was not uploaded")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("uploaded artifact is not a PDF")
	}
	if fx.sessions.session.ReportURL != url {
		t.Fatalf("session row not updated: %q", fx.sessions.session.ReportURL)
	}
	// The report is a narrative document; frame classification never runs.
	if got := atomic.LoadInt32(&fx.emotions.calls); got != 0 {
		t.Fatalf("report flow sampled frames %d times", got)
	}
	if bytes.Contains(data, []byte("/Subtype /Image")) {
		t.Fatal("report artifact should not embed chart images")
	}
}

func TestInsightGenerateInsightsDocument(t *testing.T) {
	fx := newInsightFixture(t)

	url, err := fx.svc.Generate(context.Background(), fx.request(repos.ArtifactInsights))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fx.sessions.session.InsightsURL != url {
		t.Fatalf("insights url not persisted: %q", fx.sessions.session.InsightsURL)
	}
	if fx.sessions.session.InsightsGeneratedAt == nil {
		t.Fatal("insights timestamp not persisted")
	}
	if got := atomic.LoadInt32(&fx.emotions.calls); got != 1 {
		t.Fatalf("insights flow should sample frames once, got %d", got)
	}

	wantKey := fmt.Sprintf("artifact/sessions/%s/%s/insights.pdf", fx.patientID, fx.sessionID)
	data, ok := fx.bucket.objects[wantKey]
	if !ok {
		t.Fatal("insights artifact was not uploaded")
	}
	// The insights document is the two-page chart PDF.
	pages := bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages"))
	if pages != 2 {
		t.Fatalf("expected a 2 page insights document, found %d page objects", pages)
	}
	if !bytes.Contains(data, []byte("/Subtype /Image")) {
		t.Fatal("insights artifact should embed chart images")
	}
}

func TestInsightCachedShortCircuit(t *testing.T) {
	fx := newInsightFixture(t)
	fx.sessions.session.ReportURL = "https://cdn.test/artifact/cached.pdf"

	url, err := fx.svc.Generate(context.Background(), fx.request(repos.ArtifactReport))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if url != "https://cdn.test/artifact/cached.pdf" {
		t.Fatalf("expected cached url, got %s", url)
	}
	if atomic.LoadInt32(&fx.bucket.downloads) != 0 {
		t.Fatal("pipeline ran despite cached artifact")
	}
	if atomic.LoadInt32(&fx.transcriber.calls) != 0 {
		t.Fatal("transcription ran despite cached artifact")
	}
}

func TestInsightSessionNotFound(t *testing.T) {
	fx := newInsightFixture(t)

	req := fx.request(repos.ArtifactReport)
	req.SessionID = uuid.New()
	_, err := fx.svc.Generate(context.Background(), req)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if atomic.LoadInt32(&fx.bucket.downloads) != 0 {
		t.Fatal("download ran for missing session")
	}
}

func TestInsightPersistFailureCleansUpArtifact(t *testing.T) {
	fx := newInsightFixture(t)
	fx.sessions.setArtifactOK = false

	_, err := fx.svc.Generate(context.Background(), fx.request(repos.ArtifactReport))
	if !errors.Is(err, ErrPersistFailed) {
		t.Fatalf("expected ErrPersistFailed, got %v", err)
	}
	artifactKey := fmt.Sprintf("artifact/sessions/%s/%s/report.pdf", fx.patientID, fx.sessionID)
	if _, ok := fx.bucket.objects[artifactKey]; ok {
		t.Fatal("orphaned artifact left in bucket")
	}
	found := false
	for _, k := range fx.bucket.deletes {
		if k == artifactKey {
			found = true
		}
	}
	if !found {
		t.Fatal("artifact was never deleted")
	}
}

func TestInsightUploadFailureSkipsPersist(t *testing.T) {
	fx := newInsightFixture(t)
	fx.bucket.failArtifactUploads = true

	_, err := fx.svc.Generate(context.Background(), fx.request(repos.ArtifactReport))
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if fx.sessions.artifactCalls != 0 {
		t.Fatalf("artifact write attempted after failed upload: %d calls", fx.sessions.artifactCalls)
	}
}

func TestInsightTranscriptionTimeoutMapped(t *testing.T) {
	fx := newInsightFixture(t)
	fx.transcriber.err = fmt.Errorf("gave up: %w", transcribe.ErrPollTimeout)

	_, err := fx.svc.Generate(context.Background(), fx.request(repos.ArtifactReport))
	if !errors.Is(err, ErrTranscriptionTimedOut) {
		t.Fatalf("expected ErrTranscriptionTimedOut, got %v", err)
	}
}

func TestInsightConcurrentCallsCollapse(t *testing.T) {
	fx := newInsightFixture(t)
	fx.transcriber.delay = 150 * time.Millisecond

	var wg sync.WaitGroup
	urls := make([]string, 4)
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			urls[i], errs[i] = fx.svc.Generate(context.Background(), fx.request(repos.ArtifactReport))
		}()
	}
	wg.Wait()

	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("call %d failed: %v", i, errs[i])
		}
		if urls[i] != urls[0] {
			t.Fatalf("divergent urls: %q vs %q", urls[i], urls[0])
		}
	}
	if got := atomic.LoadInt32(&fx.transcriber.calls); got != 1 {
		t.Fatalf("expected a single transcription, got %d", got)
	}
	if fx.sessions.artifactCalls != 1 {
		t.Fatalf("expected a single persist, got %d", fx.sessions.artifactCalls)
	}
}

func TestTargetSpeakerSentiments(t *testing.T) {
	tr := &transcribe.Transcript{
		Utterances: []transcribe.Utterance{
			{Speaker: "A", StartMS: 0, EndMS: 1000},
			{Speaker: "B", StartMS: 1000, EndMS: 4000},
			{Speaker: "A", StartMS: 4000, EndMS: 4500},
		},
		Sentiments: []transcribe.Sentiment{
			{Speaker: "A", Sentiment: "NEUTRAL", StartMS: 0, EndMS: 1000},
			{Speaker: "B", Sentiment: "POSITIVE", StartMS: 1000, EndMS: 4000},
			{Speaker: "A", Sentiment: "NEGATIVE", StartMS: 4000, EndMS: 4500},
		},
	}

	got := targetSpeakerSentiments(tr)
	if len(got) != 1 {
		t.Fatalf("expected 1 span for the dominant speaker, got %d", len(got))
	}
	if got[0].Speaker != "B" || got[0].Sentiment != "POSITIVE" {
		t.Fatalf("unexpected span: %+v", got[0])
	}
}

func TestTargetSpeakerSentimentsNoUtterances(t *testing.T) {
	tr := &transcribe.Transcript{
		Sentiments: []transcribe.Sentiment{
			{Sentiment: "NEUTRAL", StartMS: 0, EndMS: 500},
		},
	}
	got := targetSpeakerSentiments(tr)
	if len(got) != 1 {
		t.Fatalf("expected the full series back, got %d spans", len(got))
	}
}
