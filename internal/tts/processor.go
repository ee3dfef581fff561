package tts

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/book-expert/logger"

	"github.com/book-expert/translate-tts-service/internal/core"
)

// TranslateProcessor implements core.TTSProcessor on top of the speech endpoint.
type TranslateProcessor struct {
	client *SpeechClient
	config core.TTSConfig
	log    *logger.Logger
}

// New creates a TranslateProcessor. cfg.Language is the fallback language for
// jobs that do not name one.
func New(client *SpeechClient, cfg core.TTSConfig, log *logger.Logger) (*TranslateProcessor, error) {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	err := ValidateLanguage(cfg.Language)
	if err != nil {
		return nil, err
	}

	return &TranslateProcessor{
		client: client,
		config: cfg,
		log:    log,
	}, nil
}

// GetConfig returns the TTS configuration.
func (p *TranslateProcessor) GetConfig() core.TTSConfig {
	return p.config
}

// Process synthesizes text and returns the audio payload untouched.
func (p *TranslateProcessor) Process(ctx context.Context, text []byte, cfg core.TTSConfig) ([]byte, error) {
	language, err := ResolveLanguage(cfg.Language, p.config.Language)
	if err != nil {
		return nil, err
	}

	audioData, err := p.client.GenerateSpeech(ctx, SpeechRequest{
		Text:     string(text),
		Language: language,
	})
	if err != nil {
		return nil, fmt.Errorf("speech generation failed: %w", err)
	}

	p.log.Info("Synthesized %d characters in %q (%d bytes of audio)", utf8.RuneCount(text), language, len(audioData))

	return audioData, nil
}
