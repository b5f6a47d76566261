package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/therapulse-backend/internal/platform/apierr"
	"github.com/yungbote/therapulse-backend/internal/services"
)

func respondTo(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondServiceError(c, err)
	return w
}

func TestRespondServiceErrorDistinctCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{services.Wrap(services.ErrInvalidArgument, errors.New("status query parameter is required")), http.StatusBadRequest, "invalid_argument"},
		{services.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},
		{services.ErrSessionNotFound, http.StatusNotFound, "session_not_found"},
		{services.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{services.ErrDocumentNotFound, http.StatusNotFound, "document_not_found"},
		{services.Wrap(services.ErrTranscriptionTimedOut, errors.New("deadline")), http.StatusGatewayTimeout, "transcription_timeout"},
		{services.Wrap(services.ErrDownloadFailed, errors.New("object gone")), http.StatusBadGateway, "download_failed"},
		{services.Wrap(services.ErrAudioExtractionFailed, errors.New("ffmpeg exit 1")), http.StatusInternalServerError, "audio_extraction_failed"},
		{services.Wrap(services.ErrTranscriptionFailed, errors.New("api down")), http.StatusBadGateway, "transcription_failed"},
		{services.Wrap(services.ErrEmotionAnalysisFailed, errors.New("vision down")), http.StatusBadGateway, "emotion_analysis_failed"},
		{services.Wrap(services.ErrGenerationFailed, errors.New("quota")), http.StatusBadGateway, "generation_failed"},
		{services.Wrap(services.ErrRenderFailed, errors.New("bad png")), http.StatusInternalServerError, "render_failed"},
		{services.Wrap(services.ErrUploadFailed, errors.New("bucket down")), http.StatusBadGateway, "upload_failed"},
		{services.Wrap(services.ErrPersistFailed, errors.New("row vanished")), http.StatusInternalServerError, "persist_failed"},
	}
	for _, tc := range cases {
		w := respondTo(t, tc.err)
		if w.Code != tc.status {
			t.Fatalf("%v: status got %d want %d", tc.err, w.Code, tc.status)
		}
		if !strings.Contains(w.Body.String(), `"code":"`+tc.code+`"`) {
			t.Fatalf("%v: body %s missing code %q", tc.err, w.Body.String(), tc.code)
		}
	}
}

func TestRespondServiceErrorInvalidArgumentEchoesMessage(t *testing.T) {
	w := respondTo(t, services.Wrap(services.ErrInvalidArgument, errors.New("status query parameter is required")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "status query parameter is required") {
		t.Fatalf("caller mistake should be explained: %s", w.Body.String())
	}
}

func TestRespondServiceErrorHidesInternalDetail(t *testing.T) {
	w := respondTo(t, fmt.Errorf("pq: connection refused host=10.0.0.3 password=hunter2"))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unanticipated errors must map to 500, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "10.0.0.3") || strings.Contains(body, "hunter2") || strings.Contains(body, "pq:") {
		t.Fatalf("internal detail leaked: %s", body)
	}
	if !strings.Contains(body, `"code":"internal_error"`) {
		t.Fatalf("missing internal_error code: %s", body)
	}
}

func TestRespondServiceErrorHonorsAPIError(t *testing.T) {
	w := respondTo(t, apierr.New(http.StatusNotFound, "job_not_found", errors.New("no such job")))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"code":"job_not_found"`) {
		t.Fatalf("apierr code not honored: %s", w.Body.String())
	}
}
