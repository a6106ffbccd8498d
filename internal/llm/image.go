package llm

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
)

// GenerateImage generates an image from a prompt using Gemini with strict IMAGE modality.
// Used when IMAGE_PROVIDER=gemini; there is no placeholder fallback.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	if c.genaiClient == nil {
		return nil, fmt.Errorf("genai client not initialized (GEMINI_API_KEY unset)")
	}

	log.Debug().
		Str("model", c.modelImage).
		Str("prompt", preview(prompt, 50)).
		Msg("Generating image")

	model := c.genaiClient.GenerativeModel(c.modelImage)
	setResponseModality(model, []string{"IMAGE"})

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini image generation: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for j, part := range cand.Content.Parts {
			blob, ok := part.(genai.Blob)
			if !ok || len(blob.Data) == 0 {
				continue
			}
			mimeType := blob.MIMEType
			if mimeType == "" {
				mimeType = "image/png"
			}
			log.Info().
				Str("caller", "GenerateImage").
				Int("image_size_bytes", len(blob.Data)).
				Str("mime_type", mimeType).
				Int("candidate", i).
				Int("part", j).
				Msg("Gemini image blob received")
			return &Image{
				Data:     bytes.NewReader(blob.Data),
				Size:     int64(len(blob.Data)),
				Model:    c.modelImage,
				MimeType: mimeType,
			}, nil
		}
	}

	return nil, fmt.Errorf("no image blob in response (candidates=%d)", len(resp.Candidates))
}

// setResponseModality sets model.ResponseModality when the genai SDK exposes it.
// Uses reflection so it no-ops on SDKs that don't have the field.
func setResponseModality(model *genai.GenerativeModel, modalities []string) {
	v := reflect.ValueOf(model).Elem()
	f := v.FieldByName("ResponseModality")
	if !f.IsValid() || !f.CanSet() {
		log.Debug().Msg("ResponseModality not available on GenerativeModel")
		return
	}
	if f.Kind() == reflect.Slice && f.Type().Elem().Kind() == reflect.String {
		f.Set(reflect.ValueOf(modalities))
	}
}
