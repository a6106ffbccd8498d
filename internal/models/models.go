package models

import (
	"time"

	"github.com/google/uuid"
)

// FirstChapterContext is the context value of a chapter with no predecessor.
const FirstChapterContext = "This is the beginning of the story."

// Chapter is one narrative unit of a generated story
type Chapter struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Characters  []string `json:"characters"`
	Context     string   `json:"context"`
}

// DialogueLine is a single spoken line within a scene
type DialogueLine struct {
	Character string `json:"character"`
	Line      string `json:"line"`
}

// Scene is the cinematic rendering of one chapter
type Scene struct {
	SceneDescription string         `json:"scene_description"`
	Narration        string         `json:"narration"`
	Dialogue         []DialogueLine `json:"dialogue"`
}

// DialogueAudio is a dialogue line that was synthesized successfully
type DialogueAudio struct {
	Character string `json:"character"`
	Line      string `json:"line"`
	AudioPath string `json:"audio_path"`
}

// MediaResult records which media assets of a scene were produced and which failed.
// Each kind has its own path/error slot; empty slots are omitted.
type MediaResult struct {
	SceneIndex     int             `json:"scene_index"`
	ImagePath      string          `json:"image_path,omitempty"`
	ImageError     string          `json:"image_error,omitempty"`
	NarrationPath  string          `json:"narration_path,omitempty"`
	NarrationError string          `json:"narration_error,omitempty"`
	DialoguePaths  []DialogueAudio `json:"dialogue_paths"`
	DialogueError  string          `json:"dialogue_error,omitempty"`
}

// Assets returns the relative paths of every file this result references.
func (m MediaResult) Assets() []string {
	var paths []string
	if m.ImagePath != "" {
		paths = append(paths, m.ImagePath)
	}
	if m.NarrationPath != "" {
		paths = append(paths, m.NarrationPath)
	}
	for _, d := range m.DialoguePaths {
		paths = append(paths, d.AudioPath)
	}
	return paths
}

// StoryResult is the response of a story generation request.
// Story, SceneDescriptions and MediaResults are aligned by chapter index.
type StoryResult struct {
	Success           bool          `json:"success"`
	RequestID         uuid.UUID     `json:"request_id"`
	Story             []Chapter     `json:"story"`
	SceneDescriptions []Scene       `json:"scene_descriptions"`
	MediaResults      []MediaResult `json:"media_results"`
}

// GenerateStoryRequest is the body of POST /api/generate-story
type GenerateStoryRequest struct {
	Query string `json:"query"`
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Pipeline stages reported through progress events
const (
	StageReceived          = "received"
	StageChaptersGenerated = "chapters_generated"
	StageSceneComposed     = "scene_composed"
	StageMediaSynthesized  = "media_synthesized"
	StageCompleted         = "completed"
)

// ProgressEvent reports a pipeline state transition
type ProgressEvent struct {
	RequestID  uuid.UUID `json:"request_id"`
	Stage      string    `json:"stage"`
	SceneIndex *int      `json:"scene_index,omitempty"`
	Total      int       `json:"total"`
	At         time.Time `json:"at"`
}

// StoryCompletedEvent is published once a story run finishes
type StoryCompletedEvent struct {
	RequestID    uuid.UUID `json:"request_id"`
	Prompt       string    `json:"prompt"`
	ChapterCount int       `json:"chapter_count"`
	Assets       []string  `json:"assets"`
	FinishedAt   time.Time `json:"finished_at"`
	TraceID      string    `json:"trace_id,omitempty"`
}
