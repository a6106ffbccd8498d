package agents

import (
	"context"

	"github.com/snappy-loop/moodstory/internal/llm"
)

// TextGenerator sends user text plus a role instruction to a language model and returns raw text.
type TextGenerator interface {
	Generate(ctx context.Context, roleInstruction, userText string) (string, error)
}

// SpeechAgent synthesizes speech audio for text in a language and voice variant.
type SpeechAgent interface {
	Synthesize(ctx context.Context, text, language, voice string) (*llm.Audio, error)
}

// ImageAgent generates an image from a text prompt.
type ImageAgent interface {
	GenerateImage(ctx context.Context, prompt string) (*llm.Image, error)
}
