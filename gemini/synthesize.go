package gemini

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
)

// Synthesize renders text as speech and returns raw 16-bit little-endian
// mono PCM at 24 kHz, ready for the playback pipeline.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	model := c.genai.GenerativeModel(ttsModel)

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return nil, &InferenceError{Call: "synthesize", Err: err}
	}

	data, mime, ok := responseBlob(resp)
	if !ok || len(data) == 0 {
		return nil, &InferenceError{Call: "synthesize", Err: errNoAudio}
	}
	c.logger.Debug("speech synthesized", "bytes", len(data), "mime", mime)
	return data, nil
}

var errNoAudio = errors.New("response contains no audio data")
