package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/agents"
	"github.com/snappy-loop/moodstory/internal/config"
	"github.com/snappy-loop/moodstory/internal/handlers"
	"github.com/snappy-loop/moodstory/internal/kafka"
	"github.com/snappy-loop/moodstory/internal/llm"
	"github.com/snappy-loop/moodstory/internal/media"
	"github.com/snappy-loop/moodstory/internal/processor"
	"github.com/snappy-loop/moodstory/internal/story"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Msg("Starting Moodstory API")

	cfg := config.Load()

	if err := media.PrepareContentRoot(cfg.ContentRoot); err != nil {
		log.Fatal().Err(err).Str("root", cfg.ContentRoot).Msg("Failed to prepare content root")
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize LLM client")
	}

	instructions, err := story.LoadInstructions(cfg.ChapterInstructionFile, cfg.SceneInstructionFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load role instructions")
	}

	textAgent := agents.NewTextAgent(llmClient)
	speechAgent := agents.NewAudioAgent(llmClient)

	var imageAgent agents.ImageAgent
	switch cfg.ImageProvider {
	case "gemini":
		imageAgent = agents.NewImageAgent(llmClient)
	default:
		if cfg.ImageEndpoint == "" {
			log.Warn().Msg("IMAGE_ENDPOINT not set, every image will fail")
		}
		imageAgent = media.NewEndpointClient(cfg.ImageEndpoint, cfg.ImageAPIKey, cfg.ImageTimeout)
	}

	synth := media.NewSynthesizer(cfg.ContentRoot, imageAgent, speechAgent, media.VoiceConfig{
		Language: cfg.TTSLanguage,
		Narrator: llmClient.NarratorVoice(),
		Variants: cfg.TTSVoiceVariants,
	})

	opts := processor.Options{
		MaxConcurrentScenes: cfg.MaxConcurrentScenes,
		NamespaceByRequest:  cfg.NamespaceMedia(),
	}
	if cfg.EventsEnabled() {
		if !cfg.MediaNamespaceByRequest {
			log.Info().Msg("Kafka events enabled, storing media under per-request directories")
		}
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicStories)
		defer producer.Close()
		opts.Publisher = producer
	}

	storyProcessor := processor.NewStoryProcessor(
		story.NewChapterGenerator(textAgent, instructions.Chapter),
		story.NewSceneComposer(textAgent, instructions.Scene),
		synth,
		opts,
	)

	h := handlers.NewHandler(storyProcessor)

	r := mux.NewRouter()
	r.Use(handlers.CORS)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/generate-story", h.GenerateStory).Methods("POST", "OPTIONS")
	api.HandleFunc("/generate-story/ws", h.GenerateStoryWS).Methods("GET")
	api.HandleFunc("/health", h.Health).Methods("GET")
	r.PathPrefix(cfg.StaticURLPrefix).Handler(
		http.StripPrefix(cfg.StaticURLPrefix, http.FileServer(http.Dir(cfg.ContentRoot))),
	).Methods("GET")

	// A story run makes several model calls per chapter; the write timeout has to cover all of them.
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down API...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}
	log.Info().Msg("API exited")
}
