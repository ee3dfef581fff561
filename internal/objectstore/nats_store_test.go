// Package objectstore_test tests the NATS object store implementation.
package objectstore_test

import (
	"context"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/translate-tts-service/internal/objectstore"
)

// StartTestServer starts an in-memory NATS server for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func TestNatsObjectStore_UploadDownload(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "speech-audio")
	require.NoError(t, err)

	ctx := context.Background()
	audio := []byte("ID3 opaque mp3 payload")

	require.NoError(t, store.Upload(ctx, "job-1.mp3", audio))

	downloaded, err := store.Download(ctx, "job-1.mp3")
	require.NoError(t, err)
	assert.Equal(t, audio, downloaded)

	contentType, err := store.ContentType("job-1.mp3")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", contentType)
}

func TestNatsObjectStore_BindsExistingBucket(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	first, err := objectstore.New(jetstreamContext, "shared")
	require.NoError(t, err)
	require.NoError(t, first.Upload(context.Background(), "page.txt", []byte("hello")))

	second, err := objectstore.New(jetstreamContext, "shared")
	require.NoError(t, err)

	data, err := second.Download(context.Background(), "page.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestNatsObjectStore_MissingObject(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := objectstore.New(jetstreamContext, "empty")
	require.NoError(t, err)

	_, err = store.Download(context.Background(), "nope.mp3")
	require.Error(t, err)
}

func TestContentTypeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "audio/mpeg", objectstore.ContentTypeFor("a/b/c.MP3"))
	assert.Equal(t, "text/plain; charset=utf-8", objectstore.ContentTypeFor("page.txt"))
	assert.Equal(t, "application/octet-stream", objectstore.ContentTypeFor("blob"))
}
