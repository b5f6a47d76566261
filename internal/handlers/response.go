package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/therapulse-backend/internal/platform/apierr"
	"github.com/yungbote/therapulse-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// errInternal is what unanticipated failures surface as; the real cause stays
// in the logs, never in the response body.
var errInternal = errors.New("internal server error")

// RespondServiceError maps service sentinels onto HTTP statuses, one code per
// failure kind. Errors that already carry a status and code through apierr win
// over the sentinel table; anything unrecognized collapses to a generic 500.
func RespondServiceError(c *gin.Context, err error) {
	if ae, ok := apierr.From(err); ok {
		RespondError(c, ae.Status, ae.Code, err)
		return
	}
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
	case errors.Is(err, services.ErrPatientNotFound):
		RespondError(c, http.StatusNotFound, "patient_not_found", err)
	case errors.Is(err, services.ErrSessionNotFound):
		RespondError(c, http.StatusNotFound, "session_not_found", err)
	case errors.Is(err, services.ErrAppointmentNotFound):
		RespondError(c, http.StatusNotFound, "appointment_not_found", err)
	case errors.Is(err, services.ErrDocumentNotFound):
		RespondError(c, http.StatusNotFound, "document_not_found", err)
	case errors.Is(err, services.ErrTranscriptionTimedOut):
		RespondError(c, http.StatusGatewayTimeout, "transcription_timeout", err)
	case errors.Is(err, services.ErrDownloadFailed):
		RespondError(c, http.StatusBadGateway, "download_failed", err)
	case errors.Is(err, services.ErrAudioExtractionFailed):
		RespondError(c, http.StatusInternalServerError, "audio_extraction_failed", err)
	case errors.Is(err, services.ErrTranscriptionFailed):
		RespondError(c, http.StatusBadGateway, "transcription_failed", err)
	case errors.Is(err, services.ErrEmotionAnalysisFailed):
		RespondError(c, http.StatusBadGateway, "emotion_analysis_failed", err)
	case errors.Is(err, services.ErrGenerationFailed):
		RespondError(c, http.StatusBadGateway, "generation_failed", err)
	case errors.Is(err, services.ErrRenderFailed):
		RespondError(c, http.StatusInternalServerError, "render_failed", err)
	case errors.Is(err, services.ErrUploadFailed):
		RespondError(c, http.StatusBadGateway, "upload_failed", err)
	case errors.Is(err, services.ErrPersistFailed):
		RespondError(c, http.StatusInternalServerError, "persist_failed", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal_error", errInternal)
	}
}
