// Package core defines the interfaces shared by the service's components.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// TTSConfig holds the per-job settings for speech synthesis.
type TTSConfig struct {
	// Language is the target language code passed as "tl", e.g. "en" or "pt-BR".
	Language string
}

// TTSProcessor turns text into an opaque audio payload.
type TTSProcessor interface {
	Process(ctx context.Context, text []byte, cfg TTSConfig) ([]byte, error)
	GetConfig() TTSConfig
}
