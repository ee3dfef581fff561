// main package for the translate-tts-service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/translate-tts-service/internal/config"
	"github.com/book-expert/translate-tts-service/internal/core"
	"github.com/book-expert/translate-tts-service/internal/httpapi"
	"github.com/book-expert/translate-tts-service/internal/metrics"
	"github.com/book-expert/translate-tts-service/internal/objectstore"
	"github.com/book-expert/translate-tts-service/internal/tts"
	"github.com/book-expert/translate-tts-service/internal/worker"
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir(), "translate-tts-service-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() {
		_ = bootstrapLog.Close()
	}()

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	err = cfg.EnsureDirectories()
	if err != nil {
		bootstrapLog.Error("Failed to create directories: %v", err)

		return fmt.Errorf("failed to create directories: %w", err)
	}

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, "translate-tts-service.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serviceMetrics := metrics.New()
	client := tts.NewSpeechClientFromConfig(cfg, tts.NewKeySupplier(cfg, serviceMetrics), serviceMetrics)

	processor, err := tts.New(client, core.TTSConfig{Language: cfg.Translate.DefaultLanguage}, finalLog)
	if err != nil {
		return fmt.Errorf("failed to create speech processor: %w", err)
	}

	errChan := make(chan error, 2)
	running := 0

	if cfg.NATS.URL != "" {
		natsWorker, closeNATS, natsErr := setupWorker(cfg, processor, finalLog)
		if natsErr != nil {
			return natsErr
		}
		defer closeNATS()

		running++

		go func() {
			errChan <- natsWorker.Run(ctx)
		}()
	} else {
		finalLog.Warn("NATS URL not configured; the job worker is disabled")
	}

	handler := httpapi.NewHandler(client, cfg.Translate.DefaultLanguage, finalLog)
	router := httpapi.NewRouter(handler, serviceMetrics.Handler(), finalLog)

	running++

	go func() {
		errChan <- httpapi.Serve(ctx, cfg.HTTP.ListenAddr, router, finalLog)
	}()

	finalLog.System("Translate TTS service initialized. HTTP on %s, jobs on subject: %s",
		cfg.HTTP.ListenAddr, cfg.NATS.TextProcessedSubject)

	var firstErr error

	for range running {
		runErr := <-errChan
		if runErr != nil && firstErr == nil {
			firstErr = runErr
			finalLog.Error("Component stopped with error: %v", runErr)
			stop()
		}
	}

	finalLog.System("Translate TTS service stopped")

	return firstErr
}

// setupWorker connects to NATS, binds the object store and builds the job worker.
func setupWorker(
	cfg *config.Config,
	processor core.TTSProcessor,
	log *logger.Logger,
) (*worker.NatsWorker, func(), error) {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, fmt.Errorf("failed to create object store: %w", err)
	}

	natsWorker := worker.NewNatsWorker(natsConnection, cfg.NATS.TextProcessedSubject, store, processor, log)

	return natsWorker, natsConnection.Close, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
