// Package gemini wraps the Gemini generative API for narrative text.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/yungbote/therapulse-backend/internal/pkg/logger"
	"github.com/yungbote/therapulse-backend/internal/utils"
)

const defaultModel = "gemini-1.5-flash"

type Client struct {
	log    *logger.Logger
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewClient(log *logger.Logger) (*Client, error) {
	serviceLog := log.With("client", "GeminiClient")

	apiKey := strings.TrimSpace(utils.GetEnv("GEMINI_API_KEY", "", log))
	if apiKey == "" {
		return nil, errors.New("missing env var GEMINI_API_KEY")
	}
	modelName := utils.GetEnv("GEMINI_MODEL", defaultModel, log)

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.4)

	return &Client{log: serviceLog, client: client, model: model}, nil
}

// FallbackText is what GenerateText returns when the model answers with zero
// candidates or no text parts. An empty answer is not a transport failure, so
// callers get the fixed string instead of an error.
const FallbackText = "No summary could be generated for this session."

// GenerateText runs one prompt and returns the text parts of the first
// candidate joined by newlines.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return textFromResponse(resp), nil
}

// textFromResponse flattens the first candidate's text parts. Responses with
// nothing to say map onto FallbackText.
func textFromResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return FallbackText
	}
	parts := make([]string, 0, len(resp.Candidates[0].Content.Parts))
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	out := strings.TrimSpace(strings.Join(parts, "\n"))
	if out == "" {
		return FallbackText
	}
	return out
}

func (c *Client) Close() error {
	return c.client.Close()
}
