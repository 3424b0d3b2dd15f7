package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/spignelon/roadvision-assignment/internal/config"
	"github.com/spignelon/roadvision-assignment/internal/dashboard"
	"github.com/spignelon/roadvision-assignment/internal/database"
	"github.com/spignelon/roadvision-assignment/internal/kafka"
	"github.com/spignelon/roadvision-assignment/internal/s3"
	"github.com/spignelon/roadvision-assignment/internal/vms"
)

func main() {
	// Чтение конфига
	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal().Msgf("Failed to load config: %v", err)
	}

	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Info().Msgf("Main: init, upstream %s", cfg.Upstream.Endpoint)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := vms.NewClient(cfg.Upstream.Endpoint, cfg.Upstream.Timeout)
	opts := dashboard.Options{}

	// Архив детекций в Postgres (опционально)
	if cfg.Postgres.DSN != "" {
		db, err := database.New(cfg.Postgres.DSN)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to Postgres: %v", err)
		}
		if err := db.Init(); err != nil {
			log.Fatal().Msgf("Failed to init database: %v", err)
		}
		defer db.Close()
		opts.DetectionArchive = db
		opts.ArchivePruner = db
		opts.History = db
	}

	// Архив кадров в MinIO (опционально)
	if cfg.Minio.Endpoint != "" {
		minioClient, err := s3.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket)
		if err != nil {
			log.Fatal().Msgf("Failed to connect to MinIO: %v", err)
		}
		opts.FrameArchiver = minioClient
	}

	// События детекции в Kafka (опционально)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventTopic)
		if err != nil {
			log.Fatal().Msgf("Failed to create Kafka producer: %v", err)
		}
		defer producer.Close()
		opts.EventPublisher = producer
	}

	d := dashboard.New(cfg, client, opts)
	d.Start(ctx)

	// Запуск сервера
	srv := &http.Server{Addr: cfg.API.Addr, Handler: d.Handlers().Router()}
	go func() {
		log.Info().Msgf("Starting dashboard API server on %s", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Msgf("API server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Завершение работы...")
	cancel()
	_ = srv.Shutdown(context.Background())
	d.Shutdown()
}
