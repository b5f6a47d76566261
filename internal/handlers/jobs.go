package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/therapulse-backend/internal/services"
)

type JobsHandler struct {
	jobService services.JobService
}

func NewJobsHandler(jobService services.JobService) *JobsHandler {
	return &JobsHandler{jobService: jobService}
}

// Get returns one job row for status polling. Jobs are visible only to the
// therapist that enqueued them.
func (jh *JobsHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	jobID, ok := pathUUID(c, "jobID")
	if !ok {
		return
	}
	job, err := jh.jobService.Get(c.Request.Context(), userID, jobID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, job)
}
