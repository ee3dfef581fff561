// Package objectstore stores job text and synthesized audio in a NATS
// JetStream object store bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// MetadataContentType is the object metadata key holding the payload's media type.
const MetadataContentType = "content-type"

const defaultContentType = "application/octet-stream"

// contentTypes maps object key extensions to media types.
var contentTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".txt":  "text/plain; charset=utf-8",
	".json": "application/json",
}

// ContentTypeFor returns the media type recorded for an object key.
func ContentTypeFor(key string) string {
	contentType, ok := contentTypes[strings.ToLower(filepath.Ext(key))]
	if !ok {
		return defaultContentType
	}

	return contentType
}

// NatsObjectStore implements core.ObjectStore on a JetStream object store.
type NatsObjectStore struct {
	store  nats.ObjectStore
	bucket string
}

// New creates the bucket, or binds to it when it already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*NatsObjectStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Text and speech audio for the %s bucket.", bucketName),
		TTL:         0,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsObjectStore{
		store:  store,
		bucket: bucketName,
	}, nil
}

// Download retrieves an object's bytes.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores data under key, recording its media type in the object metadata.
func (n *NatsObjectStore) Upload(_ context.Context, key string, data []byte) error {
	_, err := n.store.Put(&nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    map[string]string{MetadataContentType: ContentTypeFor(key)},
		Opts:        nil,
	}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}

// ContentType returns the media type stored with key.
func (n *NatsObjectStore) ContentType(key string) (string, error) {
	info, err := n.store.GetInfo(key)
	if err != nil {
		return "", fmt.Errorf("failed to get info for object '%s': %w", key, err)
	}

	contentType, ok := info.Metadata[MetadataContentType]
	if !ok {
		return defaultContentType, nil
	}

	return contentType, nil
}
