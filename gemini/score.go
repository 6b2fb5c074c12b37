package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"

	"parlo/segment"
)

func scoreSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":    {Type: genai.TypeInteger},
			"rating":   {Type: genai.TypeString, Enum: []string{segment.RatingGood, segment.RatingAverage, segment.RatingPoor}},
			"feedback": {Type: genai.TypeString},
		},
	}
}

// Score rates a shadowing attempt against its target sentence. The call
// carries audio and therefore has no text-only fallback.
func (c *Client) Score(ctx context.Context, targetText string, audioBlob []byte, mimeType string) (segment.PronunciationScore, error) {
	prompt := fmt.Sprintf(`The user is trying to say: %q.
Listen to the audio and score their pronunciation, intonation, and rhythm from 0 to 100.
Provide a rating (Good, Average, Poor) and constructive feedback on how to sound more native.`,
		targetText)

	model := c.genai.GenerativeModel(analysisModel)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.GenerationConfig.ResponseSchema = scoreSchema()

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: mimeType, Data: audioBlob},
		genai.Text(prompt),
	)
	if err != nil {
		return segment.PronunciationScore{}, &InferenceError{
			Call:     "score",
			Fallback: "no fallback: scoring requires audio capability",
			Err:      err,
		}
	}

	score, err := decodeScore([]byte(responseText(resp)))
	if err != nil {
		return segment.PronunciationScore{}, &InferenceError{Call: "score", Err: err}
	}
	return score, nil
}

func decodeScore(payload []byte) (segment.PronunciationScore, error) {
	if len(payload) == 0 {
		return segment.PronunciationScore{}, fmt.Errorf("empty response")
	}
	var score segment.PronunciationScore
	if err := json.Unmarshal(payload, &score); err != nil {
		return segment.PronunciationScore{}, fmt.Errorf("malformed score payload: %w", err)
	}
	if score.Score < 0 || score.Score > 100 {
		return segment.PronunciationScore{}, fmt.Errorf("score %d outside 0-100", score.Score)
	}
	switch score.Rating {
	case segment.RatingGood, segment.RatingAverage, segment.RatingPoor:
	default:
		return segment.PronunciationScore{}, fmt.Errorf("unknown rating %q", score.Rating)
	}
	return score, nil
}
