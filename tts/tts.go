// Package tts generates native-speaker audio for rewrite playback. All
// providers emit the pipeline format: 16-bit little-endian mono PCM at
// 24 kHz.
package tts

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/haguro/elevenlabs-go"
)

type SpeechGenerator interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type ElevenLabsSpeechGenerator struct {
	apiKey  string
	voiceID string
}

func NewElevenLabsSpeechGenerator(apiKey, voiceID string) *ElevenLabsSpeechGenerator {
	return &ElevenLabsSpeechGenerator{apiKey: apiKey, voiceID: voiceID}
}

func (e *ElevenLabsSpeechGenerator) Synthesize(
	ctx context.Context,
	text string,
) ([]byte, error) {
	client := elevenlabs.NewClient(ctx, e.apiKey, 30*time.Second)
	ttsReq := elevenlabs.TextToSpeechRequest{
		Text:    text,
		ModelID: "eleven_turbo_v2_5",
	}

	var buf bytes.Buffer
	err := client.TextToSpeechStream(
		&buf,
		e.voiceID,
		ttsReq,
		elevenlabs.OutputFormat("pcm_24000"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate speech: %w", err)
	}
	return buf.Bytes(), nil
}
