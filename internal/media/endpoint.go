package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/llm"
)

// maxErrorBodyBytes bounds how much of a failed response body is quoted in the error.
const maxErrorBodyBytes = 256

// EndpointClient generates images through an HTTP endpoint that takes a `prompt`
// query parameter and answers with JSON {"image": "<base64>"}.
type EndpointClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewEndpointClient creates a client for the given endpoint. apiKey may be empty.
func NewEndpointClient(endpoint, apiKey string, timeout time.Duration) *EndpointClient {
	return &EndpointClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type endpointResponse struct {
	Image string `json:"image"`
}

// GenerateImage requests an image for prompt. Non-2xx statuses, transport errors and
// payloads without a decodable image are returned as errors.
func (c *EndpointClient) GenerateImage(ctx context.Context, prompt string) (*llm.Image, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid image endpoint %q: %w", c.endpoint, err)
	}
	q := u.Query()
	q.Set("prompt", prompt)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image endpoint request: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Image endpoint responded")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("image endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload endpointResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode image response: %w", err)
	}
	if payload.Image == "" {
		return nil, fmt.Errorf("image endpoint response has no image field")
	}

	data, mimeType, err := decodeImagePayload(payload.Image)
	if err != nil {
		return nil, err
	}
	return &llm.Image{
		Data:     bytes.NewReader(data),
		Size:     int64(len(data)),
		Model:    "endpoint",
		MimeType: mimeType,
	}, nil
}

// decodeImagePayload decodes plain base64 or a data URL (data:image/png;base64,...).
func decodeImagePayload(encoded string) ([]byte, string, error) {
	mimeType := ""
	if rest, ok := strings.CutPrefix(encoded, "data:"); ok {
		header, body, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("malformed data URL in image field")
		}
		mimeType, _, _ = strings.Cut(header, ";")
		encoded = body
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, "", fmt.Errorf("decode base64 image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image payload is empty")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
