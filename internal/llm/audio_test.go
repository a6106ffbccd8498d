package llm

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
)

func TestParseAudioMimeType(t *testing.T) {
	tests := []struct {
		in       string
		wantBits int
		wantRate int
	}{
		{"audio/L16;rate=24000", 16, 24000},
		{"audio/L24; rate=48000", 24, 48000},
		{"audio/L8", 8, 24000},
		{"audio/wav", 16, 24000},
		{"", 16, 24000},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := parseAudioMimeType(tt.in)
			if got.bitsPerSample != tt.wantBits || got.rate != tt.wantRate {
				t.Errorf("parseAudioMimeType(%q) = %+v, want bits=%d rate=%d", tt.in, got, tt.wantBits, tt.wantRate)
			}
		})
	}
}

func TestConvertToWAV(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	wav := convertToWAV(pcm, "audio/L16;rate=16000")

	if len(wav) != 44+len(pcm) {
		t.Fatalf("len = %d, want %d", len(wav), 44+len(pcm))
	}
	if !bytes.Equal(wav[0:4], []byte("RIFF")) || !bytes.Equal(wav[8:12], []byte("WAVE")) {
		t.Errorf("bad header magic: %q", wav[:12])
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d", rate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); int(size) != len(pcm) {
		t.Errorf("data size = %d", size)
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Error("payload not preserved")
	}
}

func TestValidateAudio(t *testing.T) {
	if err := validateAudio(nil); err == nil {
		t.Error("nil audio should fail")
	}
	if err := validateAudio(&Audio{Data: bytes.NewReader(nil), Size: 0}); err == nil {
		t.Error("zero size should fail")
	}
	if err := validateAudio(&Audio{Data: bytes.NewReader([]byte{1}), Size: 1}); err != nil {
		t.Errorf("valid audio: %v", err)
	}
}

func TestSynthesizeSpeech_Unconfigured(t *testing.T) {
	c := &Client{ttsVoice: "Zephyr"}
	if _, err := c.SynthesizeSpeech(context.Background(), "hello", "en-US", ""); err == nil {
		t.Error("expected error without TTS client")
	}
	if _, err := c.SynthesizeSpeech(context.Background(), "   ", "en-US", ""); err == nil {
		t.Error("expected error for blank text")
	}
}
