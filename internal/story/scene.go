package story

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/agents"
	"github.com/snappy-loop/moodstory/internal/llm"
	"github.com/snappy-loop/moodstory/internal/models"
)

// SceneComposer renders a chapter as a scene with narration and dialogue.
type SceneComposer struct {
	text        agents.TextGenerator
	instruction string
}

// NewSceneComposer returns a SceneComposer using the given role instruction.
func NewSceneComposer(text agents.TextGenerator, instruction string) *SceneComposer {
	if instruction == "" {
		instruction = DefaultSceneInstruction
	}
	return &SceneComposer{text: text, instruction: instruction}
}

// GenerateSceneDescription composes the scene for one chapter.
// A generation error or malformed output yields the zero Scene.
func (s *SceneComposer) GenerateSceneDescription(ctx context.Context, chapter models.Chapter) models.Scene {
	raw, err := s.text.Generate(ctx, s.instruction, ChapterText(chapter))
	if err != nil {
		log.Warn().
			Err(err).
			Str("caller", "GenerateSceneDescription").
			Str("chapter", chapter.Title).
			Msg("Scene generation failed, continuing with empty scene")
		return models.Scene{}
	}
	return llm.DecodeScene(raw)
}

// ChapterText flattens a chapter into the text block sent to the screenwriter.
func ChapterText(chapter models.Chapter) string {
	return fmt.Sprintf("Title: %s\nDescription: %s\nCharacters: %s\nContext: %s\n",
		chapter.Title,
		chapter.Description,
		strings.Join(chapter.Characters, ", "),
		chapter.Context,
	)
}
