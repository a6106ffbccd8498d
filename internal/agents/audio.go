package agents

import (
	"context"

	"github.com/snappy-loop/moodstory/internal/llm"
)

// AudioAgentImpl wraps llm.Client for TTS.
type AudioAgentImpl struct {
	Client *llm.Client
}

// NewAudioAgent returns a SpeechAgent that delegates to the LLM client.
func NewAudioAgent(client *llm.Client) SpeechAgent {
	return &AudioAgentImpl{Client: client}
}

// Synthesize delegates to llm.Client.SynthesizeSpeech.
func (a *AudioAgentImpl) Synthesize(ctx context.Context, text, language, voice string) (*llm.Audio, error) {
	return a.Client.SynthesizeSpeech(ctx, text, language, voice)
}
