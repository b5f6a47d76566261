// Package pipeline holds the job handlers that run the session analysis
// pipeline in the background.
package pipeline

import (
	"fmt"

	"github.com/yungbote/therapulse-backend/internal/data/repos"
	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/jobs/runtime"
	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
	"github.com/yungbote/therapulse-backend/internal/services"
)

// sessionArtifactHandler drives services.InsightService for one artifact
// kind. The same handler body backs both job types; only the kind differs.
type sessionArtifactHandler struct {
	log      *logger.Logger
	insights services.InsightService
	jobType  string
	kind     repos.ArtifactKind
}

func NewSessionReportHandler(log *logger.Logger, insights services.InsightService) runtime.Handler {
	return &sessionArtifactHandler{
		log:      log.With("handler", types.JobTypeSessionReport),
		insights: insights,
		jobType:  types.JobTypeSessionReport,
		kind:     repos.ArtifactReport,
	}
}

func NewSessionInsightsHandler(log *logger.Logger, insights services.InsightService) runtime.Handler {
	return &sessionArtifactHandler{
		log:      log.With("handler", types.JobTypeSessionInsights),
		insights: insights,
		jobType:  types.JobTypeSessionInsights,
		kind:     repos.ArtifactInsights,
	}
}

func (h *sessionArtifactHandler) Type() string { return h.jobType }

func (h *sessionArtifactHandler) Run(jc *runtime.Context) error {
	patientID, ok := jc.PayloadUUID("patient_id")
	if !ok {
		err := fmt.Errorf("payload missing patient_id")
		jc.Fail("validate", err)
		return err
	}
	sessionID, ok := jc.PayloadUUID("session_id")
	if !ok {
		err := fmt.Errorf("payload missing session_id")
		jc.Fail("validate", err)
		return err
	}

	url, err := h.insights.Generate(jc.Ctx, services.InsightRequest{
		TherapistID: jc.Job.OwnerUserID,
		PatientID:   patientID,
		SessionID:   sessionID,
		Kind:        h.kind,
		OnProgress:  jc.Progress,
	})
	if err != nil {
		h.log.Warn("Artifact generation failed",
			"job_id", jc.Job.ID, "session_id", sessionID, "error", err)
		jc.Fail(jc.Job.Stage, err)
		return err
	}

	jc.Succeed("done", map[string]any{
		"artifact_url": url,
		"kind":         string(h.kind),
	})
	return nil
}
