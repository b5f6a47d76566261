package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/jobs/runtime"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
)

// Worker polls job_run for runnable rows and dispatches them to registered
// handlers. Multiple workers can run against the same database; the claim
// query uses SKIP LOCKED so each job lands on exactly one worker.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry

	pollInterval time.Duration
	maxAttempts  int
	retryDelay   time.Duration
	staleRunning time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry) *Worker {
	return &Worker{
		db:           db,
		log:          baseLog.With("component", "JobWorker"),
		repo:         repo,
		registry:     registry,
		pollInterval: 1 * time.Second,
		maxAttempts:  3,
		retryDelay:   30 * time.Second,
		staleRunning: 5 * time.Minute,
	}
}

func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				job, err := w.repo.ClaimNextRunnable(ctx, nil, w.maxAttempts, w.retryDelay, w.staleRunning)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "error", err)
					continue
				}
				if job == nil {
					continue
				}
				w.dispatch(ctx, job)
			}
		}
	}()
}

func (w *Worker) dispatch(ctx context.Context, job *types.JobRun) {
	h, ok := w.registry.Get(job.JobType)
	jc := runtime.NewContext(ctx, w.db, job, w.repo)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}

	// A panicking handler must not take the worker loop down with it.
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
			jc.Fail("panic", fmt.Errorf("handler panic: %v", r))
		}
	}()

	if err := h.Run(jc); err != nil {
		// Handlers normally call Fail themselves; this is the backstop.
		if job.Status == types.JobStatusRunning {
			jc.Fail(job.Stage, err)
		}
		w.log.Warn("Job handler returned error", "job_id", job.ID, "job_type", job.JobType, "error", err)
	}
}
