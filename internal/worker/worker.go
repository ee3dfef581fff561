// Package worker provides a NATS worker that turns processed text into speech audio.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/translate-tts-service/internal/core"
	"github.com/book-expert/translate-tts-service/internal/tts"
)

const (
	handleMessageTimeout = 30 * time.Second
	audioKeyExtension    = ".mp3"
)

var (
	// ErrTextKeyEmpty indicates that the event does not reference any text.
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
	// ErrTextEmpty indicates that the referenced text object holds no text.
	ErrTextEmpty = errors.New("downloaded text is empty")
)

// NatsWorker listens for TextProcessedEvents on a NATS subject and replies
// with the key of the uploaded audio.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	processor      core.TTSProcessor
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	processor core.TTSProcessor,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		processor:      processor,
		log:            log,
	}
}

// Run subscribes to the subject and blocks until ctx is cancelled, then
// drains the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for text on subject %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := parseEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse event: %v", err)

		return
	}

	audioKey, processErr := w.processSpeechJob(ctx, event)
	if processErr != nil {
		w.log.Error("Failed to process speech job for workflow %s: %v", event.Header.WorkflowID, processErr)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// processSpeechJob downloads the text, synthesizes it and uploads the audio.
// The event's Voice field carries the target language code.
func (w *NatsWorker) processSpeechJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	if event.TextKey == "" {
		return "", ErrTextKeyEmpty
	}

	language, err := tts.ResolveLanguage(event.Voice, w.processor.GetConfig().Language)
	if err != nil {
		return "", fmt.Errorf("invalid language for workflow %s: %w", event.Header.WorkflowID, err)
	}

	textData, err := w.store.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text data for key '%s': %w", event.TextKey, err)
	}

	if len(textData) == 0 {
		return "", fmt.Errorf("%w: key '%s'", ErrTextEmpty, event.TextKey)
	}

	audioData, err := w.processor.Process(ctx, textData, core.TTSConfig{Language: language})
	if err != nil {
		return "", fmt.Errorf("failed to process text to speech: %w", err)
	}

	audioKey := uuid.NewString() + audioKeyExtension

	err = w.store.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	w.log.Info("Uploaded %s for page %d/%d", audioKey, event.PageNumber, event.TotalPages)

	return audioKey, nil
}

// publishReplyEvent marshals and responds with the AudioChunkCreatedEvent.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}
