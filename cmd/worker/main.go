package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/archive"
	"github.com/snappy-loop/moodstory/internal/config"
	"github.com/snappy-loop/moodstory/internal/kafka"
	"github.com/snappy-loop/moodstory/internal/storage"
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

	log.Info().Msg("Starting Moodstory archive worker")

	cfg := config.Load()
	if !cfg.EventsEnabled() {
		log.Fatal().Msg("KAFKA_BROKERS is required for the archive worker")
	}

	storageClient, err := storage.NewClient(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize storage client")
	}

	archiver := archive.NewArchiver(cfg.ContentRoot, storageClient)
	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopicStories, cfg.KafkaConsumerGroup, archiver)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	log.Info().Msg("Worker started, consuming messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-done:
	}

	log.Info().Msg("Shutting down worker...")
	cancel()
	<-done
	if err := consumer.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close consumer")
	}

	log.Info().Msg("Worker exited")
}
