package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "CONTENT_ROOT", "LLM_PROVIDER", "TTS_VOICE_VARIANTS",
		"MAX_CONCURRENT_SCENES", "KAFKA_BROKERS", "IMAGE_TIMEOUT", "MEDIA_NAMESPACE_BY_REQUEST",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.HTTPAddr != ":5000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.ContentRoot != "static" {
		t.Errorf("ContentRoot = %q", cfg.ContentRoot)
	}
	if cfg.LLMProvider != "ollama" {
		t.Errorf("LLMProvider = %q", cfg.LLMProvider)
	}
	if cfg.MaxConcurrentScenes != 1 {
		t.Errorf("MaxConcurrentScenes = %d, want 1 (sequential)", cfg.MaxConcurrentScenes)
	}
	if cfg.ImageTimeout != 120*time.Second {
		t.Errorf("ImageTimeout = %v", cfg.ImageTimeout)
	}
	if cfg.TTSVoiceVariants != nil {
		t.Errorf("TTSVoiceVariants = %v, want nil so the synthesizer default applies", cfg.TTSVoiceVariants)
	}
	if cfg.EventsEnabled() {
		t.Error("events should be disabled without brokers")
	}
	if cfg.MediaNamespaceByRequest {
		t.Error("namespacing should default to off")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("TTS_VOICE_VARIANTS", " Puck, ,Kore ")
	t.Setenv("MAX_CONCURRENT_SCENES", "-3")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("IMAGE_TIMEOUT", "5s")
	t.Setenv("MEDIA_NAMESPACE_BY_REQUEST", "true")

	cfg := Load()

	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if want := []string{"Puck", "Kore"}; !reflect.DeepEqual(cfg.TTSVoiceVariants, want) {
		t.Errorf("TTSVoiceVariants = %v, want %v", cfg.TTSVoiceVariants, want)
	}
	if cfg.MaxConcurrentScenes != 1 {
		t.Errorf("MaxConcurrentScenes = %d, want clamped to 1", cfg.MaxConcurrentScenes)
	}
	if !cfg.EventsEnabled() || len(cfg.KafkaBrokers) != 2 {
		t.Errorf("KafkaBrokers = %v", cfg.KafkaBrokers)
	}
	if cfg.ImageTimeout != 5*time.Second {
		t.Errorf("ImageTimeout = %v", cfg.ImageTimeout)
	}
	if !cfg.MediaNamespaceByRequest {
		t.Error("MediaNamespaceByRequest not applied")
	}
}

func TestGetEnvList_BlankFallsBack(t *testing.T) {
	t.Setenv("SOME_LIST", " , ")
	got := getEnvList("SOME_LIST", []string{"a"})
	if !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("got %v", got)
	}
}

func TestNamespaceMedia(t *testing.T) {
	tests := []struct {
		name      string
		namespace bool
		brokers   []string
		want      bool
	}{
		{"default", false, nil, false},
		{"explicit", true, nil, true},
		{"forced by events", false, []string{"k1:9092"}, true},
	}
	for _, tt := range tests {
		cfg := &Config{MediaNamespaceByRequest: tt.namespace, KafkaBrokers: tt.brokers}
		if got := cfg.NamespaceMedia(); got != tt.want {
			t.Errorf("%s: NamespaceMedia() = %v, want %v", tt.name, got, tt.want)
		}
	}
}
