package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/models"
)

// ErrMalformedOutput is returned when model output is not the expected JSON shape.
var ErrMalformedOutput = errors.New("malformed model output")

// stripCodeFence removes surrounding whitespace and a markdown code fence, if any.
// The fence's language tag (json, JSON, ...) is dropped whatever its case.
func stripCodeFence(raw string) string {
	response := strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(response, "```"); ok {
		tag := len(rest) - len(strings.TrimLeftFunc(rest, unicode.IsLetter))
		response = rest[tag:]
	}
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// ParseArray decodes raw model output that must be a JSON array.
func ParseArray[T any](raw string) ([]T, error) {
	response := stripCodeFence(raw)
	if !strings.HasPrefix(response, "[") {
		return nil, fmt.Errorf("%w: expected JSON array", ErrMalformedOutput)
	}
	var out []T
	if err := json.Unmarshal([]byte(response), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return out, nil
}

// ParseObject decodes raw model output that must be a JSON object.
func ParseObject[T any](raw string) (T, error) {
	var out T
	response := stripCodeFence(raw)
	if !strings.HasPrefix(response, "{") {
		return out, fmt.Errorf("%w: expected JSON object", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(response), &out); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return out, nil
}

// DecodeChapters parses a chapter array, falling back to an empty story on malformed output.
func DecodeChapters(raw string) []models.Chapter {
	chapters, err := ParseArray[models.Chapter](raw)
	if err != nil {
		log.Warn().
			Err(err).
			Str("caller", "DecodeChapters").
			Str("output_preview", preview(raw, 200)).
			Msg("Failed to parse chapters, continuing with empty story")
		return []models.Chapter{}
	}
	if chapters == nil {
		chapters = []models.Chapter{}
	}
	return chapters
}

// DecodeScene parses a scene object, falling back to an empty scene on malformed output.
func DecodeScene(raw string) models.Scene {
	scene, err := ParseObject[models.Scene](raw)
	if err != nil {
		log.Warn().
			Err(err).
			Str("caller", "DecodeScene").
			Str("output_preview", preview(raw, 200)).
			Msg("Failed to parse scene, continuing with empty scene")
		return models.Scene{}
	}
	return scene
}
