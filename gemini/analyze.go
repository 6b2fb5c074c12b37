package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/generative-ai-go/genai"

	"parlo/segment"
)

const analysisPrompt = `Analyze this audio file for an English learner.
1. Transcribe the audio accurately. Break it down into logical sentence-level segments.
2. For each segment, provide:
   - The original English text.
   - A translation into Simplified Chinese.
   - A "Native Rewrite": rewrite the sentence to sound like a sophisticated native American English speaker (more idiomatic, natural flow).
   - A reason for the rewrite (brief explanation in Simplified Chinese, keeping referenced English terms in English).
   - An estimated start and end time in seconds (relative to the audio start).
3. Analyze the overall difficulty (CEFR level: A1-C2).
4. Estimate words per minute (WPM).

Return pure JSON matching the schema.`

func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"metadata": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"cefr":      {Type: genai.TypeString},
					"wpm":       {Type: genai.TypeNumber},
					"wordCount": {Type: genai.TypeInteger},
					"duration":  {Type: genai.TypeNumber},
				},
			},
			"segments": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":            {Type: genai.TypeInteger},
						"start":         {Type: genai.TypeNumber},
						"end":           {Type: genai.TypeNumber},
						"text":          {Type: genai.TypeString},
						"translation":   {Type: genai.TypeString},
						"nativeRewrite": {Type: genai.TypeString},
						"rewriteReason": {Type: genai.TypeString},
					},
				},
			},
		},
	}
}

// Analyze transcribes, translates and rewrites a recording. This call
// carries audio, so the text-only DeepSeek fallback can never substitute
// for it; a primary failure is final.
func (c *Client) Analyze(ctx context.Context, audioData []byte, mimeType string) (*segment.Analysis, error) {
	model := c.genai.GenerativeModel(analysisModel)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.GenerationConfig.ResponseSchema = analysisSchema()

	c.logger.Debug("requesting analysis", "bytes", len(audioData), "mime", mimeType)
	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: audioData},
		genai.Text(analysisPrompt),
	)
	if err != nil {
		fallback := ""
		if c.deepseekKey != "" {
			fallback = "deepseek fallback unavailable: text-only provider cannot process audio"
		}
		return nil, &InferenceError{Call: "analyze", Fallback: fallback, Err: err}
	}

	analysis, err := decodeAnalysis([]byte(responseText(resp)))
	if err != nil {
		return nil, &InferenceError{Call: "analyze", Err: err}
	}
	c.logger.Info("analysis complete",
		"segments", len(analysis.Segments),
		"cefr", analysis.Metadata.CEFR,
		"duration", analysis.Metadata.Duration)
	return analysis, nil
}

var cefrLevels = map[string]bool{
	"A1": true, "A2": true, "B1": true, "B2": true, "C1": true, "C2": true,
}

// decodeAnalysis parses and validates an analysis response payload.
func decodeAnalysis(payload []byte) (*segment.Analysis, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	var analysis segment.Analysis
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&analysis); err != nil {
		return nil, fmt.Errorf("malformed analysis payload: %w", err)
	}

	if len(analysis.Segments) == 0 {
		return nil, fmt.Errorf("analysis contains no segments")
	}
	if !cefrLevels[analysis.Metadata.CEFR] {
		return nil, fmt.Errorf("unknown CEFR level %q", analysis.Metadata.CEFR)
	}

	seen := make(map[int]bool, len(analysis.Segments))
	for _, s := range analysis.Segments {
		if s.End <= s.Start {
			return nil, fmt.Errorf("segment %d: end %v not after start %v", s.ID, s.End, s.Start)
		}
		if s.Start < 0 {
			return nil, fmt.Errorf("segment %d: negative start %v", s.ID, s.Start)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate segment id %d", s.ID)
		}
		seen[s.ID] = true
		if s.Text == "" {
			return nil, fmt.Errorf("segment %d: empty text", s.ID)
		}
	}

	// Presentation order is by start time; the model occasionally emits
	// segments slightly out of order.
	sort.SliceStable(analysis.Segments, func(i, j int) bool {
		return analysis.Segments[i].Start < analysis.Segments[j].Start
	})
	return &analysis, nil
}
