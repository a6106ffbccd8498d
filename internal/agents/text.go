package agents

import (
	"context"

	"github.com/snappy-loop/moodstory/internal/llm"
)

// TextAgentImpl wraps llm.Client for text generation.
type TextAgentImpl struct {
	Client *llm.Client
}

// NewTextAgent returns a TextGenerator that delegates to the LLM client.
func NewTextAgent(client *llm.Client) TextGenerator {
	return &TextAgentImpl{Client: client}
}

// Generate delegates to llm.Client.Generate.
func (a *TextAgentImpl) Generate(ctx context.Context, roleInstruction, userText string) (string, error) {
	return a.Client.Generate(ctx, roleInstruction, userText)
}
