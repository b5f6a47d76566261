package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/therapulse-backend/internal/domain"
	"github.com/yungbote/therapulse-backend/internal/services"
)

type SessionHandler struct {
	sessionService services.SessionService
	jobService     services.JobService
}

func NewSessionHandler(sessionService services.SessionService, jobService services.JobService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService, jobService: jobService}
}

func (sh *SessionHandler) Create(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	filename, data, err := readUpload(c, "video")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	session, err := sh.sessionService.Create(c.Request.Context(), therapistID, patientID, services.SessionInput{
		Title:         c.PostForm("title"),
		Date:          c.PostForm("date"),
		Duration:      c.PostForm("duration"),
		Notes:         c.PostForm("notes"),
		VideoFilename: filename,
		VideoData:     data,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, session)
}

func (sh *SessionHandler) List(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	sessions, err := sh.sessionService.List(c.Request.Context(), therapistID, patientID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, sessions)
}

func (sh *SessionHandler) Get(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "sessionID")
	if !ok {
		return
	}
	session, err := sh.sessionService.Get(c.Request.Context(), therapistID, patientID, sessionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, session)
}

func (sh *SessionHandler) Update(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "sessionID")
	if !ok {
		return
	}
	var req services.SessionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	session, err := sh.sessionService.Update(c.Request.Context(), therapistID, patientID, sessionID, req)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, session)
}

func (sh *SessionHandler) Delete(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "sessionID")
	if !ok {
		return
	}
	if err := sh.sessionService.Delete(c.Request.Context(), therapistID, patientID, sessionID); err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

func (sh *SessionHandler) AppendNote(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "sessionID")
	if !ok {
		return
	}
	var req struct {
		Text      string `json:"text"`
		Timestamp string `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	note, err := sh.sessionService.AppendNote(c.Request.Context(), therapistID, patientID, sessionID, req.Text, req.Timestamp)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, note)
}

func (sh *SessionHandler) ListNotes(c *gin.Context) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "sessionID")
	if !ok {
		return
	}
	notes, err := sh.sessionService.ListNotes(c.Request.Context(), therapistID, patientID, sessionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, notes)
}

// GenerateReport queues the charts report pipeline and returns the job row
// for polling. If the artifact already exists the session is returned with
// its cached URL instead.
func (sh *SessionHandler) GenerateReport(c *gin.Context) {
	sh.enqueue(c, types.JobTypeSessionReport)
}

// GenerateInsights queues the narrative insights pipeline.
func (sh *SessionHandler) GenerateInsights(c *gin.Context) {
	sh.enqueue(c, types.JobTypeSessionInsights)
}

func (sh *SessionHandler) enqueue(c *gin.Context, jobType string) {
	therapistID, ok := currentUserID(c)
	if !ok {
		return
	}
	patientID, ok := pathUUID(c, "patientID")
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "sessionID")
	if !ok {
		return
	}

	session, err := sh.sessionService.Get(c.Request.Context(), therapistID, patientID, sessionID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	if jobType == types.JobTypeSessionReport && session.ReportURL != "" {
		RespondOK(c, gin.H{"cached": true, "artifact_url": session.ReportURL})
		return
	}
	if jobType == types.JobTypeSessionInsights && session.InsightsURL != "" {
		RespondOK(c, gin.H{"cached": true, "artifact_url": session.InsightsURL})
		return
	}

	job, err := sh.jobService.EnqueueSessionArtifact(c.Request.Context(), therapistID, patientID, sessionID, jobType)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, job)
}
