package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rivo/uniseg"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	unifiedgenai "google.golang.org/genai"
)

// maxResponseLogGraphemes is the max length of a model response to log in full (to avoid huge logs).
const maxResponseLogGraphemes = 4096

const (
	ProviderOllama   = "ollama"
	ProviderGoogleAI = "googleai"
)

// httpClientForEndpoint returns an http.Client that rewrites request URLs to the given base endpoint (e.g. http://host.docker.internal:31300/gemini).
func httpClientForEndpoint(baseEndpoint string) *http.Client {
	base, err := url.Parse(baseEndpoint)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", baseEndpoint).Msg("Invalid GEMINI_API_ENDPOINT, using default")
		return nil
	}
	base.Path = strings.TrimSuffix(base.Path, "/")
	return &http.Client{
		Transport: &endpointRoundTripper{base: base, next: http.DefaultTransport},
	}
}

// endpointRoundTripper rewrites request URLs to a custom base (scheme, host, path prefix).
type endpointRoundTripper struct {
	base *url.URL
	next http.RoundTripper
}

func (e *endpointRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.URL.Scheme = e.base.Scheme
	req2.URL.Host = e.base.Host
	req2.URL.Path = path.Join(e.base.Path, strings.TrimPrefix(req.URL.Path, "/"))
	if req.URL.RawQuery != "" {
		req2.URL.RawQuery = req.URL.RawQuery
	}
	return e.next.RoundTrip(req2)
}

// preview returns at most n grapheme clusters of s, so multi-byte text is never cut mid-character.
func preview(s string, n int) string {
	if uniseg.GraphemeClusterCount(s) <= n {
		return s
	}
	var b strings.Builder
	gr := uniseg.NewGraphemes(s)
	for i := 0; i < n && gr.Next(); i++ {
		b.WriteString(gr.Str())
	}
	return b.String() + "..."
}

// logModelResponse logs a model response, truncating long ones.
func logModelResponse(caller, raw string) {
	log.Debug().
		Str("caller", caller).
		Int("response_len", len(raw)).
		Str("model_response", preview(raw, maxResponseLogGraphemes)).
		Msg("Model response")
}

// Client wraps the text, image and speech capabilities
type Client struct {
	provider      string
	modelText     string
	modelImage    string // image generation, e.g. gemini-3-pro-image-preview
	modelTTS      string // TTS model, e.g. gemini-2.5-flash-preview-tts
	ttsVoice      string // narrator voice, e.g. Zephyr
	llmText       llms.Model
	genaiClient   *genai.Client        // for image modality
	unifiedClient *unifiedgenai.Client // unified genai SDK for TTS
	limiter       *rate.Limiter        // nil when text calls are unthrottled
}

// Audio represents generated audio
type Audio struct {
	Data     io.Reader
	Size     int64
	Model    string
	Voice    string
	MimeType string // e.g. "audio/wav" (Gemini TTS returns raw PCM, wrapped as WAV)
}

// Image represents a generated image
type Image struct {
	Data     io.Reader
	Size     int64
	Model    string
	MimeType string // e.g. "image/png", "image/jpeg"
}

// NewClient creates a new LLM client.
// The text model is served by Ollama or Google AI depending on cfg.LLMProvider; the
// Gemini image and TTS clients are created only when an API key is configured.
func NewClient(cfg *config.Config) (*Client, error) {
	// Optional custom HTTP client for Gemini calls when using a custom endpoint
	var geminiHTTPClient *http.Client
	if cfg.GeminiAPIEndpoint != "" {
		geminiHTTPClient = httpClientForEndpoint(cfg.GeminiAPIEndpoint)
	}

	var (
		llmText   llms.Model
		modelText string
		err       error
	)
	switch cfg.LLMProvider {
	case ProviderOllama:
		modelText = cfg.OllamaModel
		llmText, err = ollama.New(
			ollama.WithModel(cfg.OllamaModel),
			ollama.WithServerURL(cfg.OllamaServerURL),
		)
	case ProviderGoogleAI:
		modelText = cfg.GeminiModelText
		opts := []googleai.Option{googleai.WithAPIKey(cfg.GeminiAPIKey), googleai.WithDefaultModel(cfg.GeminiModelText)}
		if geminiHTTPClient != nil {
			opts = append(opts, googleai.WithHTTPClient(geminiHTTPClient))
		}
		llmText, err = googleai.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s text model: %w", cfg.LLMProvider, err)
	}

	// genai client for strict modality (IMAGE); requires API key
	var genaiClient *genai.Client
	if cfg.GeminiAPIKey != "" {
		genaiOpts := []option.ClientOption{option.WithAPIKey(cfg.GeminiAPIKey)}
		if cfg.GeminiAPIEndpoint != "" {
			genaiOpts = append(genaiOpts, option.WithEndpoint(cfg.GeminiAPIEndpoint))
		}
		genaiClient, err = genai.NewClient(context.Background(), genaiOpts...)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize genai client for image generation")
		}
	}

	// Unified genai client for TTS with response_modalities: audio
	var unifiedClient *unifiedgenai.Client
	if cfg.GeminiAPIKey != "" {
		unifiedCfg := &unifiedgenai.ClientConfig{APIKey: cfg.GeminiAPIKey, Backend: unifiedgenai.BackendGeminiAPI}
		if cfg.GeminiAPIEndpoint != "" {
			unifiedCfg.HTTPOptions = unifiedgenai.HTTPOptions{BaseURL: cfg.GeminiAPIEndpoint}
		}
		unifiedClient, err = unifiedgenai.NewClient(context.Background(), unifiedCfg)
		if err != nil {
			log.Error().Err(err).Msg("Failed to initialize unified genai client for TTS")
		}
	}

	var limiter *rate.Limiter
	if cfg.LLMRateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.LLMRateInterval), 1)
	}

	log.Info().
		Str("provider", cfg.LLMProvider).
		Str("model_text", modelText).
		Str("model_image", cfg.GeminiModelImage).
		Str("model_tts", cfg.GeminiModelTTS).
		Str("tts_voice", cfg.GeminiTTSVoice).
		Str("api_endpoint", cfg.GeminiAPIEndpoint).
		Dur("rate_interval", cfg.LLMRateInterval).
		Bool("genai_client", genaiClient != nil).
		Bool("unified_tts", unifiedClient != nil).
		Msg("LLM client initialized")

	return &Client{
		provider:      cfg.LLMProvider,
		modelText:     modelText,
		modelImage:    cfg.GeminiModelImage,
		modelTTS:      cfg.GeminiModelTTS,
		ttsVoice:      cfg.GeminiTTSVoice,
		llmText:       llmText,
		genaiClient:   genaiClient,
		unifiedClient: unifiedClient,
		limiter:       limiter,
	}, nil
}

// NarratorVoice returns the voice used for scene narration.
func (c *Client) NarratorVoice() string {
	return c.ttsVoice
}
