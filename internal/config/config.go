package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration
type Config struct {
	// Server
	HTTPAddr        string
	LogLevel        string
	ContentRoot     string // directory holding images/ and audio/
	StaticURLPrefix string // URL prefix the content root is served under

	// Text generation
	LLMProvider     string // ollama or googleai
	OllamaServerURL string
	OllamaModel     string
	LLMRateInterval time.Duration // minimum spacing between text generation calls; 0 disables

	// Role instructions (optional overrides of the embedded defaults)
	ChapterInstructionFile string
	SceneInstructionFile   string

	// Gemini API
	GeminiAPIKey      string
	GeminiAPIEndpoint string // if set, overrides default Gemini API base URL
	GeminiModelText   string
	GeminiModelImage  string
	GeminiModelTTS    string
	GeminiTTSVoice    string // narrator voice

	// Speech
	TTSLanguage      string
	TTSVoiceVariants []string // cycled across dialogue lines

	// Image
	ImageProvider string // endpoint or gemini
	ImageEndpoint string
	ImageAPIKey   string
	ImageTimeout  time.Duration

	// Processing
	MaxConcurrentScenes     int
	MediaNamespaceByRequest bool

	// Kafka
	KafkaBrokers       []string
	KafkaTopicStories  string
	KafkaConsumerGroup string

	// S3/Storage (archive worker)
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment wins.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to read .env file")
	}

	return &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":5000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ContentRoot:     getEnv("CONTENT_ROOT", "static"),
		StaticURLPrefix: getEnv("STATIC_URL_PREFIX", "/static/"),

		LLMProvider:     getEnv("LLM_PROVIDER", "ollama"),
		OllamaServerURL: getEnv("OLLAMA_SERVER_URL", "http://localhost:11434"),
		OllamaModel:     getEnv("OLLAMA_MODEL", "mistral:latest"),
		LLMRateInterval: getEnvDuration("LLM_RATE_INTERVAL", 0),

		ChapterInstructionFile: getEnv("CHAPTER_INSTRUCTION_FILE", ""),
		SceneInstructionFile:   getEnv("SCENE_INSTRUCTION_FILE", ""),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiAPIEndpoint: getEnv("GEMINI_API_ENDPOINT", ""),
		GeminiModelText:   getEnv("GEMINI_MODEL_TEXT", "gemini-2.5-flash"),
		GeminiModelImage:  getEnv("GEMINI_MODEL_IMAGE", "gemini-3-pro-image-preview"),
		GeminiModelTTS:    getEnv("GEMINI_MODEL_TTS", "gemini-2.5-flash-preview-tts"),
		GeminiTTSVoice:    getEnv("GEMINI_TTS_VOICE", "Zephyr"),

		TTSLanguage:      getEnv("TTS_LANGUAGE", "en-US"),
		TTSVoiceVariants: getEnvList("TTS_VOICE_VARIANTS", nil), // nil: media.DefaultVoiceVariants

		ImageProvider: getEnv("IMAGE_PROVIDER", "endpoint"),
		ImageEndpoint: getEnv("IMAGE_ENDPOINT", "http://localhost:7860/generate"),
		ImageAPIKey:   getEnv("IMAGE_API_KEY", ""),
		ImageTimeout:  getEnvDuration("IMAGE_TIMEOUT", 120*time.Second),

		MaxConcurrentScenes:     clampMin(getEnvInt("MAX_CONCURRENT_SCENES", 1), 1),
		MediaNamespaceByRequest: getEnvBool("MEDIA_NAMESPACE_BY_REQUEST", false),

		KafkaBrokers:       getEnvList("KAFKA_BROKERS", nil),
		KafkaTopicStories:  getEnv("KAFKA_TOPIC_STORIES", "moodstory.stories.v1"),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "moodstory-archiver"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "moodstory-assets"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),
	}
}

// EventsEnabled reports whether story events should be published to Kafka.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// NamespaceMedia reports whether asset paths are prefixed with the request id.
// Always true with events on: the archive worker reads a story's files after the
// request has returned, when fixed-name files may already belong to the next story.
func (c *Config) NamespaceMedia() bool {
	return c.MediaNamespaceByRequest || c.EventsEnabled()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// clampMin returns v if v >= min, otherwise min. Used to ensure config values are in valid range.
func clampMin(v, min int) int {
	if v < min {
		return min
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blank items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
