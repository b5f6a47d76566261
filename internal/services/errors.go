package services

import (
	"errors"
	"fmt"
)

// Sentinel errors for the insight pipeline and clinical services. Callers
// branch with errors.Is; handlers map them onto HTTP statuses.
var (
	// ErrInvalidArgument marks caller mistakes; its message is safe to echo
	// back in a 400 response.
	ErrInvalidArgument = errors.New("invalid argument")

	ErrPatientNotFound     = errors.New("patient not found")
	ErrSessionNotFound     = errors.New("session not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDocumentNotFound    = errors.New("document not found")

	ErrDownloadFailed        = errors.New("video download failed")
	ErrAudioExtractionFailed = errors.New("audio extraction failed")
	ErrTranscriptionFailed   = errors.New("transcription failed")
	ErrTranscriptionTimedOut = errors.New("transcription timed out")
	ErrEmotionAnalysisFailed = errors.New("emotion analysis failed")
	ErrGenerationFailed      = errors.New("narrative generation failed")
	ErrRenderFailed          = errors.New("artifact rendering failed")
	ErrUploadFailed          = errors.New("artifact upload failed")
	ErrPersistFailed         = errors.New("artifact persistence failed")
)

// Wrap attaches a sentinel to an underlying cause so both survive errors.Is
// and errors.Unwrap.
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
