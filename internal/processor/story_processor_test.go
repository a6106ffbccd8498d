package processor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/snappy-loop/moodstory/internal/llm"
	"github.com/snappy-loop/moodstory/internal/media"
	"github.com/snappy-loop/moodstory/internal/models"
)

type fakeChapters struct {
	chapters []models.Chapter
	calls    int
}

func (f *fakeChapters) GenerateChapters(_ context.Context, _ string) []models.Chapter {
	f.calls++
	return f.chapters
}

// fakeScenes echoes the chapter title into the scene, optionally with random delay.
type fakeScenes struct {
	jitter bool
}

func (f *fakeScenes) GenerateSceneDescription(_ context.Context, chapter models.Chapter) models.Scene {
	if f.jitter {
		time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
	}
	return models.Scene{
		SceneDescription: "scene of " + chapter.Title,
		Narration:        "narration of " + chapter.Title,
		Dialogue:         []models.DialogueLine{{Character: "Sam", Line: "line of " + chapter.Title}},
	}
}

type okSpeech struct{}

func (okSpeech) Synthesize(context.Context, string, string, string) (*llm.Audio, error) {
	return &llm.Audio{Data: strings.NewReader("mp3"), MimeType: "audio/mpeg"}, nil
}

type okImage struct{}

func (okImage) GenerateImage(_ context.Context, prompt string) (*llm.Image, error) {
	return &llm.Image{Data: strings.NewReader(prompt), MimeType: "image/jpeg"}, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*models.StoryCompletedEvent
	err    error
}

func (f *fakePublisher) PublishStoryCompleted(_ context.Context, event *models.StoryCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

func chaptersN(n int) []models.Chapter {
	out := make([]models.Chapter, n)
	for i := range out {
		out[i] = models.Chapter{
			Title:       fmt.Sprintf("Chapter %d", i),
			Description: fmt.Sprintf("description %d", i),
			Characters:  []string{"Sam"},
		}
	}
	return out
}

func newSynth(t *testing.T) *media.Synthesizer {
	return media.NewSynthesizer(t.TempDir(), okImage{}, okSpeech{}, media.VoiceConfig{})
}

func assertAligned(t *testing.T, res *models.StoryResult, n int) {
	t.Helper()
	if len(res.Story) != n || len(res.SceneDescriptions) != n || len(res.MediaResults) != n {
		t.Fatalf("lengths = %d/%d/%d, want %d", len(res.Story), len(res.SceneDescriptions), len(res.MediaResults), n)
	}
	for i := range res.Story {
		if res.MediaResults[i].SceneIndex != i {
			t.Errorf("media_results[%d].scene_index = %d", i, res.MediaResults[i].SceneIndex)
		}
		if want := "scene of " + res.Story[i].Title; res.SceneDescriptions[i].SceneDescription != want {
			t.Errorf("scene %d = %q, want %q", i, res.SceneDescriptions[i].SceneDescription, want)
		}
	}
}

func TestRun_Sequential(t *testing.T) {
	p := NewStoryProcessor(&fakeChapters{chapters: chaptersN(4)}, &fakeScenes{}, newSynth(t), Options{})

	res, err := p.Run(context.Background(), "I lost my job", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success {
		t.Error("success = false")
	}
	assertAligned(t, res, 4)
	if res.MediaResults[3].ImagePath != "images/scene_3.jpg" {
		t.Errorf("image path = %q", res.MediaResults[3].ImagePath)
	}
}

func TestRun_ParallelKeepsAlignment(t *testing.T) {
	p := NewStoryProcessor(&fakeChapters{chapters: chaptersN(5)}, &fakeScenes{jitter: true}, newSynth(t), Options{
		MaxConcurrentScenes: 3,
		NamespaceByRequest:  true,
	})

	res, err := p.Run(context.Background(), "p", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertAligned(t, res, 5)

	prefix := res.RequestID.String() + "/images/"
	for i, m := range res.MediaResults {
		if !strings.HasPrefix(m.ImagePath, prefix) {
			t.Errorf("media %d image path %q not namespaced", i, m.ImagePath)
		}
	}
}

func TestRun_EmptyChapters(t *testing.T) {
	pub := &fakePublisher{}
	p := NewStoryProcessor(&fakeChapters{chapters: []models.Chapter{}}, &fakeScenes{}, newSynth(t), Options{Publisher: pub})

	res, err := p.Run(context.Background(), "p", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success {
		t.Error("success = false")
	}

	b, _ := json.Marshal(res)
	for _, key := range []string{`"story":[]`, `"scene_descriptions":[]`, `"media_results":[]`} {
		if !strings.Contains(string(b), key) {
			t.Errorf("response %s missing %s", b, key)
		}
	}
	if len(pub.events) != 1 || pub.events[0].ChapterCount != 0 {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestRun_ProgressEvents(t *testing.T) {
	var mu sync.Mutex
	var stages []string
	progress := func(ev models.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		stages = append(stages, ev.Stage)
	}

	p := NewStoryProcessor(&fakeChapters{chapters: chaptersN(2)}, &fakeScenes{}, newSynth(t), Options{})
	if _, err := p.Run(context.Background(), "p", progress); err != nil {
		t.Fatal(err)
	}

	want := []string{
		models.StageReceived,
		models.StageChaptersGenerated,
		models.StageSceneComposed, models.StageMediaSynthesized,
		models.StageSceneComposed, models.StageMediaSynthesized,
		models.StageCompleted,
	}
	if strings.Join(stages, ",") != strings.Join(want, ",") {
		t.Errorf("stages = %v, want %v", stages, want)
	}
}

func TestRun_PublishesCompletedEvent(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	p := NewStoryProcessor(&fakeChapters{chapters: chaptersN(2)}, &fakeScenes{}, newSynth(t), Options{Publisher: pub})

	res, err := p.Run(context.Background(), "rainy day", nil)
	if err != nil {
		t.Fatalf("publish failure must not fail the run: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events = %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.RequestID != res.RequestID || ev.Prompt != "rainy day" || ev.ChapterCount != 2 {
		t.Errorf("event = %+v", ev)
	}
	// image + narration + one dialogue line per scene
	if len(ev.Assets) != 6 {
		t.Errorf("assets = %v", ev.Assets)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chapters := &fakeChapters{chapters: chaptersN(3)}
	p := NewStoryProcessor(chapters, &fakeScenes{}, newSynth(t), Options{})

	if _, err := p.Run(ctx, "p", nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// Four chapters, the image endpoint fails for the third: every other asset is produced.
func TestRun_ImageEndpointFailureIsIsolated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("prompt") == "description 2" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"image": base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}),
		})
	}))
	defer srv.Close()

	synth := media.NewSynthesizer(t.TempDir(), media.NewEndpointClient(srv.URL, "", 5*time.Second), okSpeech{}, media.VoiceConfig{})
	p := NewStoryProcessor(&fakeChapters{chapters: chaptersN(4)}, &fakeScenes{}, synth, Options{})

	res, err := p.Run(context.Background(), "I lost my job and feel lost", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertAligned(t, res, 4)

	for i, m := range res.MediaResults {
		if m.NarrationPath == "" || len(m.DialoguePaths) != 1 {
			t.Errorf("scene %d audio missing: %+v", i, m)
		}
		if i == 2 {
			if m.ImagePath != "" || !strings.Contains(m.ImageError, "500") {
				t.Errorf("scene 2 image = %q / %q", m.ImagePath, m.ImageError)
			}
			continue
		}
		if m.ImagePath != fmt.Sprintf("images/scene_%d.jpg", i) || m.ImageError != "" {
			t.Errorf("scene %d image = %q / %q", i, m.ImagePath, m.ImageError)
		}
	}
}

// promptChapters returns one chapter whose description is the prompt.
type promptChapters struct{}

func (promptChapters) GenerateChapters(_ context.Context, prompt string) []models.Chapter {
	return []models.Chapter{{Title: prompt, Description: prompt}}
}

// A finished story's files must survive the next run until they are archived.
func TestRun_BackToBackRunsKeepEarlierAssets(t *testing.T) {
	root := t.TempDir()
	pub := &fakePublisher{}
	synth := media.NewSynthesizer(root, okImage{}, okSpeech{}, media.VoiceConfig{})
	p := NewStoryProcessor(promptChapters{}, &fakeScenes{}, synth, Options{NamespaceByRequest: true, Publisher: pub})

	for _, prompt := range []string{"story A", "story B"} {
		if _, err := p.Run(context.Background(), prompt, nil); err != nil {
			t.Fatalf("Run(%q): %v", prompt, err)
		}
	}

	if len(pub.events) != 2 {
		t.Fatalf("events = %d", len(pub.events))
	}
	first, second := pub.events[0], pub.events[1]
	if first.Assets[0] == second.Assets[0] {
		t.Fatalf("runs share asset path %q", first.Assets[0])
	}
	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(first.Assets[0])))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "story A" {
		t.Errorf("first story image = %q, want %q", got, "story A")
	}
}
