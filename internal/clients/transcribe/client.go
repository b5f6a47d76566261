// Package transcribe wraps a speech-to-text REST API with an
// upload / submit / poll contract, diarization, and per-utterance sentiment.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL      = "https://api.assemblyai.com"
	defaultHTTPTimeout  = 60 * time.Second
	defaultPollInterval = 3 * time.Second
	maxPollInterval     = 30 * time.Second
	defaultPollDeadline = 30 * time.Minute

	maxRequestAttempts = 3
	retryBaseDelay     = 500 * time.Millisecond
)

// ErrPollTimeout is returned when a transcript does not reach a terminal
// status before the polling deadline.
var ErrPollTimeout = errors.New("transcribe: polling deadline exceeded")

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Client wraps the transcription API.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	pollDeadline time.Duration
	retryDelay   time.Duration
}

// Option customizes the transcription client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithPollInterval sets the initial delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithPollDeadline bounds how long Transcribe waits for a terminal status.
func WithPollDeadline(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollDeadline = d
		}
	}
}

// WithRetryBaseDelay sets the initial backoff between retried requests.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// NewClient constructs a transcription API client.
func NewClient(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:       strings.TrimSpace(apiKey),
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		pollInterval: defaultPollInterval,
		pollDeadline: defaultPollDeadline,
		retryDelay:   retryBaseDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Utterance is one diarized span of speech.
type Utterance struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	StartMS    int     `json:"start"`
	EndMS      int     `json:"end"`
}

// Sentiment is one scored span from sentiment analysis.
type Sentiment struct {
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker"`
	StartMS    int     `json:"start"`
	EndMS      int     `json:"end"`
}

// Transcript is the API's transcript resource.
type Transcript struct {
	ID         string      `json:"id"`
	Status     string      `json:"status"`
	Text       string      `json:"text"`
	Error      string      `json:"error,omitempty"`
	Utterances []Utterance `json:"utterances,omitempty"`
	Sentiments []Sentiment `json:"sentiment_analysis_results,omitempty"`
}

type submitRequest struct {
	AudioURL          string `json:"audio_url"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	SentimentAnalysis bool   `json:"sentiment_analysis"`
}

// UploadAudio streams raw audio bytes to the API and returns the upload URL.
// When the reader is seekable the upload is retried on transient failures;
// a one-shot stream gets a single attempt.
func (c *Client) UploadAudio(ctx context.Context, audio io.Reader) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", errors.New("transcribe upload: api key required")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/v2/upload")
	if err != nil {
		return "", fmt.Errorf("transcribe upload: build url: %w", err)
	}

	attempts := 1
	seeker, seekable := audio.(io.ReadSeeker)
	if seekable {
		attempts = maxRequestAttempts
	}
	build := func() (*http.Request, error) {
		if seekable {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return nil, fmt.Errorf("rewind audio: %w", err)
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, audio)
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Content-Type", "application/octet-stream")
		return req, nil
	}

	resp, err := c.doWithRetry(ctx, attempts, build)
	if err != nil {
		return "", fmt.Errorf("transcribe upload: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("transcribe upload: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("transcribe upload: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var parsed struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("transcribe upload: decode response: %w", err)
	}
	if parsed.UploadURL == "" {
		return "", errors.New("transcribe upload: empty upload_url")
	}
	return parsed.UploadURL, nil
}

// Submit creates a transcript job for an already-uploaded audio URL.
// Diarization and sentiment analysis are always requested.
func (c *Client) Submit(ctx context.Context, audioURL string) (*Transcript, error) {
	if strings.TrimSpace(audioURL) == "" {
		return nil, errors.New("transcribe submit: audio url required")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/v2/transcript")
	if err != nil {
		return nil, fmt.Errorf("transcribe submit: build url: %w", err)
	}
	encoded, err := json.Marshal(submitRequest{
		AudioURL:          audioURL,
		SpeakerLabels:     true,
		SentimentAnalysis: true,
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe submit: encode request: %w", err)
	}
	return c.doTranscript(ctx, "submit", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
}

// Poll fetches the current transcript state.
func (c *Client) Poll(ctx context.Context, transcriptID string) (*Transcript, error) {
	if strings.TrimSpace(transcriptID) == "" {
		return nil, errors.New("transcribe poll: transcript id required")
	}
	endpoint, err := url.JoinPath(c.baseURL, "/v2/transcript", transcriptID)
	if err != nil {
		return nil, fmt.Errorf("transcribe poll: build url: %w", err)
	}
	return c.doTranscript(ctx, "poll", func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)
		return req, nil
	})
}

// Transcribe uploads audio, submits a job, and polls with capped backoff until
// the transcript reaches a terminal status or the deadline passes.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader) (*Transcript, error) {
	uploadURL, err := c.UploadAudio(ctx, audio)
	if err != nil {
		return nil, err
	}
	submitted, err := c.Submit(ctx, uploadURL)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.pollDeadline)
	interval := c.pollInterval
	for {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: transcript %s", ErrPollTimeout, submitted.ID)
		}

		tr, err := c.Poll(ctx, submitted.ID)
		if err != nil {
			return nil, err
		}
		switch tr.Status {
		case StatusCompleted:
			return tr, nil
		case StatusError:
			return nil, fmt.Errorf("transcribe: transcript %s failed: %s", tr.ID, tr.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
		interval *= 2
		if interval > maxPollInterval {
			interval = maxPollInterval
		}
	}
}

func (c *Client) doTranscript(ctx context.Context, op string, build func() (*http.Request, error)) (*Transcript, error) {
	resp, err := c.doWithRetry(ctx, maxRequestAttempts, build)
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transcribe %s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("transcribe %s: http %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var tr Transcript
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("transcribe %s: decode response: %w", op, err)
	}
	return &tr, nil
}

// retryableStatus reports whether a response status is worth another attempt.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// doWithRetry issues a request up to attempts times with doubling delay,
// rebuilding it each time. Transport errors and 429/5xx responses are retried;
// any other response is handed back to the caller untouched.
func (c *Client) doWithRetry(ctx context.Context, attempts int, build func() (*http.Request, error)) (*http.Response, error) {
	if attempts < 1 {
		attempts = 1
	}
	delay := c.retryDelay
	if delay <= 0 {
		delay = retryBaseDelay
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
		} else {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, lastErr
}
