package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
)

// Generate sends userText to the text model under the given role instruction and
// returns the raw completion. The output is not validated; callers parse it.
func (c *Client) Generate(ctx context.Context, roleInstruction, userText string) (string, error) {
	if c.llmText == nil {
		return "", fmt.Errorf("text model not initialized")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	log.Debug().
		Str("provider", c.provider).
		Str("model", c.modelText).
		Int("instruction_len", len(roleInstruction)).
		Str("user_text", preview(userText, 120)).
		Msg("Calling text model")

	messages := []llms.MessageContent{
		{Role: llms.ChatMessageTypeSystem, Parts: []llms.ContentPart{llms.TextContent{Text: roleInstruction}}},
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextContent{Text: userText}}},
	}
	resp, err := c.llmText.GenerateContent(ctx, messages, llms.WithTemperature(0.7))
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	response := resp.Choices[0].Content
	logModelResponse("Generate", response)
	return response, nil
}
