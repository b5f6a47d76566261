package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/therapulse-backend/internal/clients/gcp"
	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// SessionInput is the create payload. The video arrives as raw multipart
// bytes; duration is derived from the video when the caller leaves it empty.
type SessionInput struct {
	Title    string
	Date     string
	Duration string
	Notes    string

	VideoFilename string
	VideoData     []byte
}

type SessionUpdate struct {
	Title *string `json:"title"`
	Date  *string `json:"date"`
	Notes *string `json:"notes"`
}

type SessionService interface {
	Create(ctx context.Context, therapistID, patientID uuid.UUID, in SessionInput) (*types.Session, error)
	Get(ctx context.Context, therapistID, patientID, sessionID uuid.UUID) (*types.Session, error)
	List(ctx context.Context, therapistID, patientID uuid.UUID) ([]*types.Session, error)
	Update(ctx context.Context, therapistID, patientID, sessionID uuid.UUID, in SessionUpdate) (*types.Session, error)
	// Delete removes the row plus the stored video and generated artifacts.
	Delete(ctx context.Context, therapistID, patientID, sessionID uuid.UUID) error

	AppendNote(ctx context.Context, therapistID, patientID, sessionID uuid.UUID, text, timestamp string) (*types.SessionNote, error)
	ListNotes(ctx context.Context, therapistID, patientID, sessionID uuid.UUID) ([]*types.SessionNote, error)
}

type sessionService struct {
	log         *logger.Logger
	patientRepo repos.PatientRepo
	sessionRepo repos.SessionRepo
	bucket      gcp.BucketService
	media       MediaToolsService
}

func NewSessionService(
	log *logger.Logger,
	patientRepo repos.PatientRepo,
	sessionRepo repos.SessionRepo,
	bucket gcp.BucketService,
	media MediaToolsService,
) SessionService {
	return &sessionService{
		log:         log.With("service", "SessionService"),
		patientRepo: patientRepo,
		sessionRepo: sessionRepo,
		bucket:      bucket,
		media:       media,
	}
}

var allowedVideoExts = map[string]bool{
	".mp4": true, ".mov": true, ".webm": true, ".mkv": true, ".avi": true,
}

func (ss *sessionService) Create(ctx context.Context, therapistID, patientID uuid.UUID, in SessionInput) (*types.Session, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(in.Date) == "" {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidArgument)
	}
	if len(in.VideoData) == 0 {
		return nil, fmt.Errorf("%w: video file is required", ErrInvalidArgument)
	}
	ext := strings.ToLower(path.Ext(in.VideoFilename))
	if !allowedVideoExts[ext] {
		return nil, fmt.Errorf("%w: unsupported video type %q", ErrInvalidArgument, ext)
	}

	if err := ss.requirePatient(ctx, therapistID, patientID); err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	videoKey := fmt.Sprintf("sessions/%s/%s%s", patientID, sessionID, ext)

	if err := ss.bucket.UploadFile(ctx, gcp.BucketCategoryMedia, videoKey, bytes.NewReader(in.VideoData)); err != nil {
		return nil, Wrap(ErrUploadFailed, err)
	}

	duration := strings.TrimSpace(in.Duration)
	thumbnailURL := ss.deriveSideArtifacts(ctx, patientID, sessionID, in.VideoData, ext, &duration)

	session := &types.Session{
		ID:           sessionID,
		PatientID:    patientID,
		TherapistID:  therapistID,
		Title:        strings.TrimSpace(in.Title),
		Date:         strings.TrimSpace(in.Date),
		Duration:     duration,
		Notes:        strings.TrimSpace(in.Notes),
		VideoKey:     videoKey,
		VideoURL:     ss.bucket.GetPublicURL(gcp.BucketCategoryMedia, videoKey),
		ThumbnailURL: thumbnailURL,
	}
	created, err := ss.sessionRepo.Create(ctx, nil, []*types.Session{session})
	if err != nil {
		if delErr := ss.bucket.DeleteFile(ctx, gcp.BucketCategoryMedia, videoKey); delErr != nil {
			ss.log.Warn("Failed to clean up orphaned session video", "error", delErr)
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return created[0], nil
}

// deriveSideArtifacts probes the uploaded video for duration and renders a
// thumbnail. Both are best-effort; a session without a thumbnail is still
// usable.
func (ss *sessionService) deriveSideArtifacts(ctx context.Context, patientID, sessionID uuid.UUID, videoData []byte, ext string, duration *string) string {
	videoPath, cleanup, err := ss.media.WriteTempFile(ctx, videoData, ext)
	if err != nil {
		ss.log.Warn("Failed to stage video for probing", "error", err)
		return ""
	}
	defer cleanup()

	if *duration == "" {
		probe, err := ss.media.ProbeVideo(ctx, videoPath)
		if err != nil {
			ss.log.Warn("Failed to probe video duration", "error", err)
		} else if probe.DurationSeconds > 0 {
			total := int(probe.DurationSeconds)
			*duration = fmt.Sprintf("%02d:%02d", total/60, total%60)
		}
	}

	thumbPath := filepath.Join(filepath.Dir(videoPath), fmt.Sprintf("%s_thumb.jpg", sessionID))
	if _, err := ss.media.ExtractThumbnail(ctx, videoPath, thumbPath); err != nil {
		ss.log.Warn("Failed to extract thumbnail", "error", err)
		return ""
	}
	defer os.Remove(thumbPath)

	thumbData, err := os.ReadFile(thumbPath)
	if err != nil {
		ss.log.Warn("Failed to read thumbnail", "error", err)
		return ""
	}
	thumbKey := fmt.Sprintf("sessions/%s/%s_thumb.jpg", patientID, sessionID)
	if err := ss.bucket.UploadFile(ctx, gcp.BucketCategoryMedia, thumbKey, bytes.NewReader(thumbData)); err != nil {
		ss.log.Warn("Failed to upload thumbnail", "error", err)
		return ""
	}
	return ss.bucket.GetPublicURL(gcp.BucketCategoryMedia, thumbKey)
}

func (ss *sessionService) Get(ctx context.Context, therapistID, patientID, sessionID uuid.UUID) (*types.Session, error) {
	if err := ss.requirePatient(ctx, therapistID, patientID); err != nil {
		return nil, err
	}
	session, err := ss.sessionRepo.GetByID(ctx, nil, patientID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (ss *sessionService) List(ctx context.Context, therapistID, patientID uuid.UUID) ([]*types.Session, error) {
	if err := ss.requirePatient(ctx, therapistID, patientID); err != nil {
		return nil, err
	}
	return ss.sessionRepo.ListByPatient(ctx, nil, patientID)
}

func (ss *sessionService) Update(ctx context.Context, therapistID, patientID, sessionID uuid.UUID, in SessionUpdate) (*types.Session, error) {
	if err := ss.requirePatient(ctx, therapistID, patientID); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if in.Title != nil {
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Date != nil {
		updates["date"] = strings.TrimSpace(*in.Date)
	}
	if in.Notes != nil {
		updates["notes"] = strings.TrimSpace(*in.Notes)
	}
	ok, err := ss.sessionRepo.UpdateFields(ctx, nil, patientID, sessionID, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ss.Get(ctx, therapistID, patientID, sessionID)
}

func (ss *sessionService) Delete(ctx context.Context, therapistID, patientID, sessionID uuid.UUID) error {
	if err := ss.requirePatient(ctx, therapistID, patientID); err != nil {
		return err
	}
	session, err := ss.sessionRepo.GetByID(ctx, nil, patientID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return ErrSessionNotFound
	}

	ok, err := ss.sessionRepo.Delete(ctx, nil, patientID, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}

	if session.VideoKey != "" {
		if err := ss.bucket.DeleteFile(ctx, gcp.BucketCategoryMedia, session.VideoKey); err != nil {
			ss.log.Warn("Failed to delete session video from storage", "error", err)
		}
	}
	// Thumbnail and generated artifacts share the session prefix in their
	// buckets, so a prefix sweep catches everything the pipeline produced.
	if err := ss.bucket.DeletePrefix(ctx, gcp.BucketCategoryMedia, fmt.Sprintf("sessions/%s/%s_thumb", patientID, sessionID)); err != nil {
		ss.log.Warn("Failed to delete session thumbnail", "error", err)
	}
	if err := ss.bucket.DeletePrefix(ctx, gcp.BucketCategoryArtifact, fmt.Sprintf("sessions/%s/%s/", patientID, sessionID)); err != nil {
		ss.log.Warn("Failed to delete session artifacts", "error", err)
	}
	return nil
}

func (ss *sessionService) AppendNote(ctx context.Context, therapistID, patientID, sessionID uuid.UUID, text, timestamp string) (*types.SessionNote, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: note text is required", ErrInvalidArgument)
	}
	if _, err := ss.Get(ctx, therapistID, patientID, sessionID); err != nil {
		return nil, err
	}
	note := &types.SessionNote{
		ID:          uuid.New(),
		SessionID:   sessionID,
		TherapistID: therapistID,
		Text:        text,
		Timestamp:   strings.TrimSpace(timestamp),
	}
	return ss.sessionRepo.AppendNote(ctx, nil, note)
}

func (ss *sessionService) ListNotes(ctx context.Context, therapistID, patientID, sessionID uuid.UUID) ([]*types.SessionNote, error) {
	if _, err := ss.Get(ctx, therapistID, patientID, sessionID); err != nil {
		return nil, err
	}
	return ss.sessionRepo.ListNotes(ctx, nil, sessionID)
}

func (ss *sessionService) requirePatient(ctx context.Context, therapistID, patientID uuid.UUID) error {
	patient, err := ss.patientRepo.GetByID(ctx, nil, therapistID, patientID)
	if err != nil {
		return fmt.Errorf("failed to load patient: %w", err)
	}
	if patient == nil {
		return ErrPatientNotFound
	}
	return nil
}
