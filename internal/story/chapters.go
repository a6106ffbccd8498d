package story

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/agents"
	"github.com/snappy-loop/moodstory/internal/llm"
	"github.com/snappy-loop/moodstory/internal/models"
)

// Chapter count the authoring instruction asks for. Not enforced.
const (
	minChapters = 3
	maxChapters = 5
)

// ChapterGenerator turns a user prompt into an ordered list of chapters.
type ChapterGenerator struct {
	text        agents.TextGenerator
	instruction string
}

// NewChapterGenerator returns a ChapterGenerator using the given role instruction.
func NewChapterGenerator(text agents.TextGenerator, instruction string) *ChapterGenerator {
	if instruction == "" {
		instruction = DefaultChapterInstruction
	}
	return &ChapterGenerator{text: text, instruction: instruction}
}

// GenerateChapters asks the text model for a story and returns the parsed chapters verbatim.
// A generation error or malformed output yields an empty slice.
func (g *ChapterGenerator) GenerateChapters(ctx context.Context, userPrompt string) []models.Chapter {
	raw, err := g.text.Generate(ctx, g.instruction, userPrompt)
	if err != nil {
		log.Warn().Err(err).Str("caller", "GenerateChapters").Msg("Chapter generation failed, continuing with empty story")
		return []models.Chapter{}
	}

	chapters := llm.DecodeChapters(raw)
	if n := len(chapters); n < minChapters || n > maxChapters {
		log.Warn().
			Int("chapters", n).
			Int("min", minChapters).
			Int("max", maxChapters).
			Msg("Chapter count outside requested range")
	}

	log.Info().Int("chapters", len(chapters)).Msg("Chapters generated")
	return chapters
}
