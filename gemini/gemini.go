// Package gemini calls the external inference services: audio analysis,
// word definition, pronunciation scoring and speech synthesis. Responses
// are validated strictly at this boundary; anything that does not match
// the expected shape surfaces as an InferenceError.
package gemini

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Model names per call.
const (
	analysisModel  = "gemini-2.5-flash"
	ttsModel       = "gemini-2.5-flash-preview-tts"
	deepseekModel  = "deepseek-chat"
	deepseekAPIURL = "https://api.deepseek.com/v1"
)

// InferenceError reports a failed external call. Call names which of the
// four services failed; Fallback, when non-empty, explains the fallback
// that was attempted or why none could substitute.
type InferenceError struct {
	Call     string
	Fallback string
	Err      error
}

func (e *InferenceError) Error() string {
	if e.Fallback != "" {
		return fmt.Sprintf("inference %s: %v (%s)", e.Call, e.Err, e.Fallback)
	}
	return fmt.Sprintf("inference %s: %v", e.Call, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Client holds the primary Gemini connection and the optional DeepSeek
// key used for text-only fallback.
type Client struct {
	genai       *genai.Client
	deepseekKey string
	logger      *log.Logger
}

func New(ctx context.Context, apiKey, deepseekKey string, logger *log.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{genai: client, deepseekKey: deepseekKey, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.genai.Close()
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	return out
}

// responseBlob returns the first inline binary part of the first
// candidate, typically synthesized audio.
func responseBlob(resp *genai.GenerateContentResponse) ([]byte, string, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, "", false
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok {
			return blob.Data, blob.MIMEType, true
		}
	}
	return nil, "", false
}
