package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/translate-tts-service/internal/config"
	"github.com/book-expert/translate-tts-service/internal/metrics"
	"github.com/book-expert/translate-tts-service/internal/tkk"
	"github.com/book-expert/translate-tts-service/internal/tts/ttsutils"
)

const (
	// HealthCheckTimeout defines the timeout for health check operations.
	HealthCheckTimeout = 10 * time.Second

	filePermissions = 0o600
	dirPermissions  = 0o750
)

// Static errors.
var (
	ErrChunksPathEmpty = errors.New("chunks path cannot be empty")
	ErrOutputDirEmpty  = errors.New("output directory cannot be empty")
	ErrOutputPathEmpty = errors.New("output path cannot be empty")
	ErrNoChunksFound   = errors.New("no chunks found")
)

func newNoChunksFoundError(path string) error {
	return fmt.Errorf("%w in %s", ErrNoChunksFound, path)
}

const (
	errFmtHealthCheckFailed     = "speech service health check failed: %w"
	logFmtServiceHealthy        = "Speech service is healthy, processing %d chunks"
	logFmtGeneratedAudio        = "Generated audio: %s (%s)"
	chunkFileFormat             = "%04d_%s"
	errFmtChunkFailed           = "chunk %d failed: %w"
	logFmtChunkProcessingFailed = "Failed to process chunk %d: %v"
	logFmtChunkProcessed        = "Processed chunk %d/%d"
)

// NewKeySupplier builds the key supplier described by cfg: a fresh fetch per
// call, optionally behind a TTL cache, counted on m.
func NewKeySupplier(cfg *config.Config, m *metrics.Metrics) tkk.Supplier {
	supplier := tkk.Supplier(tkk.NewHTTPSupplier(
		cfg.Translate.KeyPageURL,
		userAgentOrDefault(cfg.Translate.UserAgent),
		cfg.Timeout(),
	))

	supplier = m.InstrumentSupplier(supplier)

	if cfg.KeyCacheTTL() > 0 {
		supplier = tkk.NewCachedSupplier(supplier, cfg.KeyCacheTTL())
	}

	return supplier
}

// NewSpeechClientFromConfig wires a SpeechClient from cfg.
func NewSpeechClientFromConfig(cfg *config.Config, keys tkk.Supplier, m *metrics.Metrics) *SpeechClient {
	return NewSpeechClient(
		cfg.Translate.BaseURL,
		keys,
		cfg.Timeout(),
		WithUserAgent(cfg.Translate.UserAgent),
		WithRateLimit(cfg.Translate.RequestsPerSecond),
		WithMetrics(m),
	)
}

func userAgentOrDefault(userAgent string) string {
	if userAgent == "" {
		return DefaultUserAgent
	}

	return userAgent
}

// HTTPEngine writes speech audio to disk, for a single text or for a JSON
// file of chunks processed by a bounded pool of workers.
type HTTPEngine struct {
	client *SpeechClient
	config *config.Config
	logger *logger.Logger
}

// NewHTTPEngine creates an engine that talks to the configured service.
func NewHTTPEngine(cfg *config.Config, log *logger.Logger) *HTTPEngine {
	client := NewSpeechClientFromConfig(cfg, NewKeySupplier(cfg, nil), nil)

	return &HTTPEngine{
		client: client,
		config: cfg,
		logger: log,
	}
}

// NewHTTPEngineWithClient creates an engine around an existing client.
func NewHTTPEngineWithClient(
	cfg *config.Config,
	log *logger.Logger,
	client *SpeechClient,
) *HTTPEngine {
	return &HTTPEngine{
		client: client,
		config: cfg,
		logger: log,
	}
}

// Client returns the underlying speech client.
func (e *HTTPEngine) Client() *SpeechClient {
	return e.client
}

// ProcessChunks synthesizes every chunk of a JSON array file into outputDir.
// Files are named "<position>_<language>_<text>.mp3" so they sort in input
// order. A failing chunk does not stop the others; the last error is returned.
func (e *HTTPEngine) ProcessChunks(chunksPath, language, outputDir string) error {
	inputErr := e.validateChunkInputs(chunksPath, outputDir)
	if inputErr != nil {
		return inputErr
	}

	language, langErr := ResolveLanguage(language, e.config.Translate.DefaultLanguage)
	if langErr != nil {
		return langErr
	}

	chunks, prepErr := e.prepareChunkProcessing(chunksPath, outputDir)
	if prepErr != nil {
		return prepErr
	}

	healthErr := e.checkServiceHealth()
	if healthErr != nil {
		return healthErr
	}

	e.logger.Info(logFmtServiceHealthy, len(chunks))

	return e.processChunksParallel(chunks, language, outputDir)
}

// ProcessSingleChunk synthesizes text and writes the audio to outputPath.
func (e *HTTPEngine) ProcessSingleChunk(text, language, outputPath string) error {
	inputErr := e.validateSingleChunkInputs(text, outputPath)
	if inputErr != nil {
		return inputErr
	}

	language, langErr := ResolveLanguage(language, e.config.Translate.DefaultLanguage)
	if langErr != nil {
		return langErr
	}

	prepErr := e.prepareSingleChunkOutput(outputPath)
	if prepErr != nil {
		return prepErr
	}

	audioData, genErr := e.generateSpeechAudio(text, language)
	if genErr != nil {
		return genErr
	}

	writeErr := os.WriteFile(outputPath, audioData, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	e.logger.Info(logFmtGeneratedAudio, outputPath, ttsutils.FormatFileSize(int64(len(audioData))))

	return nil
}

// Close releases engine resources. HTTP clients need no explicit cleanup.
func (e *HTTPEngine) Close() error {
	return nil
}

func (e *HTTPEngine) validateChunkInputs(chunksPath, outputDir string) error {
	if chunksPath == "" {
		return ErrChunksPathEmpty
	}

	if outputDir == "" {
		return ErrOutputDirEmpty
	}

	return nil
}

func (e *HTTPEngine) prepareChunkProcessing(chunksPath, outputDir string) ([]string, error) {
	chunks, chunksErr := e.readChunksFile(chunksPath)
	if chunksErr != nil {
		return nil, fmt.Errorf("failed to read chunks: %w", chunksErr)
	}

	dirErr := os.MkdirAll(outputDir, dirPermissions)
	if dirErr != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	return chunks, nil
}

func (e *HTTPEngine) checkServiceHealth() error {
	ctx, cancel := context.WithTimeout(context.Background(), HealthCheckTimeout)
	defer cancel()

	healthErr := e.client.HealthCheck(ctx)
	if healthErr != nil {
		return fmt.Errorf(errFmtHealthCheckFailed, healthErr)
	}

	return nil
}

func (e *HTTPEngine) validateSingleChunkInputs(text, outputPath string) error {
	if text == "" {
		return ErrTextEmpty
	}

	if outputPath == "" {
		return ErrOutputPathEmpty
	}

	return nil
}

func (e *HTTPEngine) prepareSingleChunkOutput(outputPath string) error {
	dirErr := os.MkdirAll(filepath.Dir(outputPath), dirPermissions)
	if dirErr != nil {
		return fmt.Errorf("failed to create output directory: %w", dirErr)
	}

	return nil
}

func (e *HTTPEngine) generateSpeechAudio(text, language string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.Timeout())
	defer cancel()

	audioData, speechErr := e.client.GenerateSpeech(ctx, SpeechRequest{
		Text:     text,
		Language: language,
	})
	if speechErr != nil {
		return nil, fmt.Errorf("failed to generate speech: %w", speechErr)
	}

	return audioData, nil
}

// readChunksFile reads a JSON array of strings.
func (e *HTTPEngine) readChunksFile(chunksPath string) ([]string, error) {
	data, err := os.ReadFile(chunksPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var chunks []string

	err = parseJSON(data, &chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chunks JSON: %w", err)
	}

	if len(chunks) == 0 {
		return nil, newNoChunksFoundError(chunksPath)
	}

	return chunks, nil
}

// processChunksParallel runs at most Translate.Workers requests at a time.
func (e *HTTPEngine) processChunksParallel(chunks []string, language, outputDir string) error {
	var (
		waitGroup sync.WaitGroup
		mutex     sync.Mutex
		lastError error
	)

	workerPool := make(chan struct{}, e.config.Translate.Workers)

	for chunkIndex, chunk := range chunks {
		waitGroup.Add(1)

		go func(index int, text string) {
			defer waitGroup.Done()

			workerPool <- struct{}{}

			defer func() { <-workerPool }()

			outputPath := filepath.Join(
				outputDir,
				fmt.Sprintf(chunkFileFormat, index+1, ttsutils.DownloadFilename(language, text)),
			)

			err := e.ProcessSingleChunk(text, language, outputPath)
			if err != nil {
				mutex.Lock()

				lastError = fmt.Errorf(errFmtChunkFailed, index+1, err)

				mutex.Unlock()
				e.logger.Error(logFmtChunkProcessingFailed, index+1, err)

				return
			}

			e.logger.Info(logFmtChunkProcessed, index+1, len(chunks))
		}(chunkIndex, chunk)
	}

	waitGroup.Wait()
	close(workerPool)

	return lastError
}
