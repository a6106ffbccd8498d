package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/media"
	"github.com/snappy-loop/moodstory/internal/models"
	"golang.org/x/sync/errgroup"
)

// ChapterSource produces the chapters of a story for a prompt.
type ChapterSource interface {
	GenerateChapters(ctx context.Context, prompt string) []models.Chapter
}

// SceneSource composes the scene of a chapter.
type SceneSource interface {
	GenerateSceneDescription(ctx context.Context, chapter models.Chapter) models.Scene
}

// EventPublisher receives a notification once a story has finished.
type EventPublisher interface {
	PublishStoryCompleted(ctx context.Context, event *models.StoryCompletedEvent) error
}

// ProgressFunc is called on every pipeline state transition. It may be nil.
// When scenes run concurrently it is called from several goroutines.
type ProgressFunc func(models.ProgressEvent)

// Options tunes the processor.
type Options struct {
	MaxConcurrentScenes int
	NamespaceByRequest  bool
	Publisher           EventPublisher // optional
}

// StoryProcessor runs the story pipeline: chapters, then one scene and one media
// bundle per chapter.
type StoryProcessor struct {
	chapters           ChapterSource
	scenes             SceneSource
	media              *media.Synthesizer
	publisher          EventPublisher
	maxConcurrent      int
	namespaceByRequest bool
}

// NewStoryProcessor creates a new story processor
func NewStoryProcessor(chapters ChapterSource, scenes SceneSource, synth *media.Synthesizer, opts Options) *StoryProcessor {
	if opts.MaxConcurrentScenes < 1 {
		opts.MaxConcurrentScenes = 1
	}
	return &StoryProcessor{
		chapters:           chapters,
		scenes:             scenes,
		media:              synth,
		publisher:          opts.Publisher,
		maxConcurrent:      opts.MaxConcurrentScenes,
		namespaceByRequest: opts.NamespaceByRequest,
	}
}

// Run generates a complete story for prompt. Upstream failures degrade the result
// instead of failing it; an error is returned only when ctx is cancelled.
func (p *StoryProcessor) Run(ctx context.Context, prompt string, progress ProgressFunc) (*models.StoryResult, error) {
	requestID := uuid.New()
	start := time.Now()
	logger := log.With().Str("request_id", requestID.String()).Logger()
	emit := func(stage string, sceneIndex *int, total int) {
		if progress == nil {
			return
		}
		progress(models.ProgressEvent{
			RequestID:  requestID,
			Stage:      stage,
			SceneIndex: sceneIndex,
			Total:      total,
			At:         time.Now().UTC(),
		})
	}

	logger.Info().Int("prompt_len", len(prompt)).Msg("Starting story generation")
	emit(models.StageReceived, nil, 0)

	// Step 1: chapters
	chapters := p.chapters.GenerateChapters(ctx, prompt)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("story %s cancelled: %w", requestID, err)
	}
	n := len(chapters)
	emit(models.StageChaptersGenerated, nil, n)
	logger.Info().Int("chapters", n).Msg("Step 1 complete: chapters")

	// Step 2: one scene and one media bundle per chapter, written by index
	synth := p.media
	if p.namespaceByRequest {
		synth = synth.WithNamespace(requestID.String())
	}
	scenes := make([]models.Scene, n)
	results := make([]models.MediaResult, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)
	for i := range chapters {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			idx := i
			logger.Info().Int("scene", i+1).Int("total", n).Msg("Processing scene")

			scenes[i] = p.scenes.GenerateSceneDescription(gctx, chapters[i])
			emit(models.StageSceneComposed, &idx, n)

			results[i] = synth.Synthesize(gctx, i, chapters[i], scenes[i])
			emit(models.StageMediaSynthesized, &idx, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("story %s cancelled: %w", requestID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("story %s cancelled: %w", requestID, err)
	}

	result := &models.StoryResult{
		Success:           true,
		RequestID:         requestID,
		Story:             chapters,
		SceneDescriptions: scenes,
		MediaResults:      results,
	}

	emit(models.StageCompleted, nil, n)
	p.publishCompleted(ctx, prompt, result)

	logger.Info().
		Int("chapters", n).
		Dur("elapsed", time.Since(start)).
		Msg("Story generation completed")

	return result, nil
}

// publishCompleted announces the finished story. Failures are logged only.
func (p *StoryProcessor) publishCompleted(ctx context.Context, prompt string, result *models.StoryResult) {
	if p.publisher == nil {
		return
	}
	assets := []string{}
	for _, m := range result.MediaResults {
		assets = append(assets, m.Assets()...)
	}
	event := &models.StoryCompletedEvent{
		RequestID:    result.RequestID,
		Prompt:       prompt,
		ChapterCount: len(result.Story),
		Assets:       assets,
		FinishedAt:   time.Now().UTC(),
	}
	if err := p.publisher.PublishStoryCompleted(ctx, event); err != nil {
		log.Error().
			Err(err).
			Str("request_id", result.RequestID.String()).
			Msg("Failed to publish story completed event")
	}
}
