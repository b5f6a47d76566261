package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
	"github.com/yungbote/therapulse-backend/internal/platform/apierr"
)

const entityTypeSession = "session"

// JobService enqueues pipeline runs and exposes their status for polling.
type JobService interface {
	// EnqueueSessionArtifact queues a background run for the given session.
	// A session that already has a queued or running job of the same type
	// returns that job instead of queuing a duplicate.
	EnqueueSessionArtifact(ctx context.Context, therapistID, patientID, sessionID uuid.UUID, jobType string) (*types.JobRun, error)
	Get(ctx context.Context, ownerUserID, jobID uuid.UUID) (*types.JobRun, error)
	LatestForSession(ctx context.Context, ownerUserID, sessionID uuid.UUID, jobType string) (*types.JobRun, error)
}

type jobService struct {
	log         *logger.Logger
	jobRunRepo  repos.JobRunRepo
	patientRepo repos.PatientRepo
	sessionRepo repos.SessionRepo
}

func NewJobService(log *logger.Logger, jobRunRepo repos.JobRunRepo, patientRepo repos.PatientRepo, sessionRepo repos.SessionRepo) JobService {
	return &jobService{
		log:         log.With("service", "JobService"),
		jobRunRepo:  jobRunRepo,
		patientRepo: patientRepo,
		sessionRepo: sessionRepo,
	}
}

func (js *jobService) EnqueueSessionArtifact(ctx context.Context, therapistID, patientID, sessionID uuid.UUID, jobType string) (*types.JobRun, error) {
	if jobType != types.JobTypeSessionReport && jobType != types.JobTypeSessionInsights {
		return nil, fmt.Errorf("unknown job type %q", jobType)
	}

	patient, err := js.patientRepo.GetByID(ctx, nil, therapistID, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}
	session, err := js.sessionRepo.GetByID(ctx, nil, patientID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	runnable, err := js.jobRunRepo.HasRunnableForEntity(ctx, nil, therapistID, entityTypeSession, sessionID, jobType)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing jobs: %w", err)
	}
	if runnable {
		existing, err := js.jobRunRepo.GetLatestByEntity(ctx, nil, therapistID, entityTypeSession, sessionID, jobType)
		if err != nil {
			return nil, fmt.Errorf("failed to load existing job: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
	}

	payload, err := json.Marshal(map[string]string{
		"patient_id": patientID.String(),
		"session_id": sessionID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	entityID := sessionID
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: therapistID,
		JobType:     jobType,
		EntityType:  entityTypeSession,
		EntityID:    &entityID,
		Status:      types.JobStatusQueued,
		Stage:       "queued",
		Payload:     datatypes.JSON(payload),
	}
	created, err := js.jobRunRepo.Create(ctx, nil, []*types.JobRun{job})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	js.log.Info("Enqueued job", "job_id", job.ID, "job_type", jobType, "session_id", sessionID)
	return created[0], nil
}

func (js *jobService) Get(ctx context.Context, ownerUserID, jobID uuid.UUID) (*types.JobRun, error) {
	found, err := js.jobRunRepo.GetByIDs(ctx, nil, []uuid.UUID{jobID})
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if len(found) == 0 || found[0].OwnerUserID != ownerUserID {
		return nil, apierr.New(http.StatusNotFound, "job_not_found", fmt.Errorf("job %s not found", jobID))
	}
	return found[0], nil
}

func (js *jobService) LatestForSession(ctx context.Context, ownerUserID, sessionID uuid.UUID, jobType string) (*types.JobRun, error) {
	return js.jobRunRepo.GetLatestByEntity(ctx, nil, ownerUserID, entityTypeSession, sessionID, jobType)
}
