package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	openai "github.com/sashabaranov/go-openai"

	"parlo/segment"
)

const deepseekDictionaryPrompt = `You are a helpful English dictionary assistant for learners.
Return ONLY valid JSON matching this structure:
{
  "word": "string (the word being defined)",
  "phonetic": "string (IPA)",
  "definition": "string (short clear definition in English)",
  "example": "string (a new example sentence using the word)"
}`

func definitionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"word":       {Type: genai.TypeString},
			"phonetic":   {Type: genai.TypeString},
			"definition": {Type: genai.TypeString},
			"example":    {Type: genai.TypeString},
		},
	}
}

// Define looks up a word in the context of its sentence. The call never
// carries audio, so on a primary failure it retries against DeepSeek
// when a key is configured.
func (c *Client) Define(ctx context.Context, word, contextSentence string) (segment.WordDefinition, error) {
	prompt := fmt.Sprintf(
		`Define the word %q in the context of this sentence: %q. Return JSON.`,
		word, contextSentence,
	)

	model := c.genai.GenerativeModel(analysisModel)
	model.GenerationConfig.ResponseMIMEType = "application/json"
	model.GenerationConfig.ResponseSchema = definitionSchema()

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err == nil {
		def, derr := decodeDefinition([]byte(responseText(resp)))
		if derr == nil {
			return def, nil
		}
		err = derr
	}

	if c.deepseekKey == "" {
		return segment.WordDefinition{}, &InferenceError{Call: "define", Err: err}
	}

	c.logger.Warn("definition lookup falling back to deepseek", "word", word, "error", err)
	def, fbErr := c.defineViaDeepSeek(ctx, prompt)
	if fbErr != nil {
		return segment.WordDefinition{}, &InferenceError{
			Call:     "define",
			Fallback: fmt.Sprintf("deepseek fallback also failed: %v", fbErr),
			Err:      err,
		}
	}
	return def, nil
}

func (c *Client) defineViaDeepSeek(ctx context.Context, prompt string) (segment.WordDefinition, error) {
	cfg := openai.DefaultConfig(c.deepseekKey)
	cfg.BaseURL = deepseekAPIURL
	client := openai.NewClientWithConfig(cfg)

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: deepseekModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: deepseekDictionaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return segment.WordDefinition{}, fmt.Errorf("deepseek chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return segment.WordDefinition{}, fmt.Errorf("deepseek returned no choices")
	}
	return decodeDefinition([]byte(resp.Choices[0].Message.Content))
}

func decodeDefinition(payload []byte) (segment.WordDefinition, error) {
	if len(payload) == 0 {
		return segment.WordDefinition{}, fmt.Errorf("empty response")
	}
	var def segment.WordDefinition
	if err := json.Unmarshal(payload, &def); err != nil {
		return segment.WordDefinition{}, fmt.Errorf("malformed definition payload: %w", err)
	}
	if def.Word == "" || def.Definition == "" {
		return segment.WordDefinition{}, fmt.Errorf("definition payload missing required fields")
	}
	return def, nil
}
