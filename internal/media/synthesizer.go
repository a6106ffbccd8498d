package media

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/agents"
	"github.com/snappy-loop/moodstory/internal/models"
)

// VoiceConfig selects the language and voices used for speech.
type VoiceConfig struct {
	Language string
	Narrator string   // voice for scene narration
	Variants []string // cycled across dialogue lines
}

// Synthesizer produces the image and audio assets of a scene under a content root.
type Synthesizer struct {
	root      string
	namespace string
	image     agents.ImageAgent
	speech    agents.SpeechAgent
	voices    VoiceConfig
}

// NewSynthesizer creates a Synthesizer writing below root. The directory layout is
// expected to exist already (see PrepareContentRoot).
func NewSynthesizer(root string, image agents.ImageAgent, speech agents.SpeechAgent, voices VoiceConfig) *Synthesizer {
	if len(voices.Variants) == 0 {
		voices.Variants = DefaultVoiceVariants
	}
	return &Synthesizer{
		root:   root,
		image:  image,
		speech: speech,
		voices: voices,
	}
}

// WithNamespace returns a copy whose asset paths are prefixed with ns, isolating
// one request's files from another's.
func (s *Synthesizer) WithNamespace(ns string) *Synthesizer {
	cp := *s
	cp.namespace = ns
	return &cp
}

// Synthesize generates the image, narration and dialogue audio for the scene at
// sceneIndex. The three kinds succeed or fail independently; failures are recorded
// in the result and never returned.
func (s *Synthesizer) Synthesize(ctx context.Context, sceneIndex int, chapter models.Chapter, scene models.Scene) models.MediaResult {
	result := models.MediaResult{
		SceneIndex:    sceneIndex,
		DialoguePaths: []models.DialogueAudio{},
	}
	logger := log.With().Int("scene_index", sceneIndex).Logger()

	img := attempt("image", func() (string, error) {
		return s.generateImage(ctx, sceneIndex, chapter.Description)
	})
	result.ImagePath, result.ImageError = img.path, img.errString()
	if img.err != nil {
		logger.Warn().Err(img.err).Msg("Image generation failed")
	}

	if scene.Narration != "" {
		narration := attempt("narration", func() (string, error) {
			return s.generateSpeech(ctx, scene.Narration, s.voices.Narrator, narrationPath(s.namespace, sceneIndex))
		})
		result.NarrationPath, result.NarrationError = narration.path, narration.errString()
		if narration.err != nil {
			logger.Warn().Err(narration.err).Msg("Narration synthesis failed")
		}
	}

	dialogue := attempt("dialogue", func() (string, error) {
		result.DialoguePaths = s.generateDialogue(ctx, sceneIndex, scene.Dialogue)
		return "", nil
	})
	if dialogue.err != nil {
		result.DialogueError = dialogue.errString()
		logger.Warn().Err(dialogue.err).Msg("Dialogue synthesis failed")
	}

	logger.Info().
		Bool("image", result.ImagePath != "").
		Bool("narration", result.NarrationPath != "").
		Int("dialogue_lines", len(result.DialoguePaths)).
		Int("dialogue_total", len(scene.Dialogue)).
		Msg("Scene media synthesized")

	return result
}

func (s *Synthesizer) generateImage(ctx context.Context, sceneIndex int, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("chapter has no description to use as image prompt")
	}
	img, err := s.image.GenerateImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	if img == nil {
		return "", fmt.Errorf("image agent returned nil result")
	}
	rel := imagePath(s.namespace, sceneIndex)
	if err := writeAsset(s.root, rel, img.Data); err != nil {
		return "", err
	}
	return rel, nil
}

// generateSpeech synthesizes text and stores it at rel.
func (s *Synthesizer) generateSpeech(ctx context.Context, text, voice, rel string) (string, error) {
	audio, err := s.speech.Synthesize(ctx, text, s.voices.Language, voice)
	if err != nil {
		return "", err
	}
	if audio == nil {
		return "", fmt.Errorf("speech agent returned nil result")
	}
	if err := writeAsset(s.root, rel, audio.Data); err != nil {
		return "", err
	}
	return rel, nil
}

// generateDialogue synthesizes each non-empty line with its positional voice variant.
// Failed lines are logged and left out; the rest keep their order.
func (s *Synthesizer) generateDialogue(ctx context.Context, sceneIndex int, lines []models.DialogueLine) []models.DialogueAudio {
	out := []models.DialogueAudio{}
	for j, line := range lines {
		if line.Line == "" {
			continue
		}
		lineIndex := j
		res := attempt(fmt.Sprintf("dialogue line %d", lineIndex), func() (string, error) {
			return s.generateSpeech(ctx, line.Line, VoiceFor(lineIndex, s.voices.Variants), dialoguePath(s.namespace, sceneIndex, lineIndex))
		})
		if res.err != nil {
			log.Warn().
				Err(res.err).
				Int("scene_index", sceneIndex).
				Int("line_index", lineIndex).
				Str("character", line.Character).
				Msg("Dialogue line synthesis failed, skipping")
			continue
		}
		out = append(out, models.DialogueAudio{
			Character: line.Character,
			Line:      line.Line,
			AudioPath: res.path,
		})
	}
	return out
}
