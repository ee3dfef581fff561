package tts_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/translate-tts-service/internal/metrics"
	"github.com/book-expert/translate-tts-service/internal/tkk"
	"github.com/book-expert/translate-tts-service/internal/token"
	"github.com/book-expert/translate-tts-service/internal/tts"
)

var recordedKey = token.KeyPair{Index: 406398, Key: 561666268}

func newTestClient(fake *fakeService, opts ...tts.ClientOption) *tts.SpeechClient {
	keys := tkk.NewHTTPSupplier(fake.server.URL, tts.DefaultUserAgent, 5*time.Second)

	return tts.NewSpeechClient(fake.server.URL, keys, 5*time.Second, opts...)
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	query, err := tts.BuildQuery("hello", "en", recordedKey)
	require.NoError(t, err)

	assert.Equal(t, url.Values{
		"ie":      {"UTF-8"},
		"q":       {"hello"},
		"tl":      {"en"},
		"total":   {"1"},
		"idx":     {"0"},
		"textlen": {"5"},
		"tk":      {helloToken},
		"client":  {"t"},
	}, query)
}

func TestBuildQuery_TextLenCountsCodeUnits(t *testing.T) {
	t.Parallel()

	query, err := tts.BuildQuery("abc😀def", "ja", recordedKey)
	require.NoError(t, err)
	assert.Equal(t, "8", query.Get("textlen"))
	assert.Equal(t, "964913.559695", query.Get("tk"))
}

func TestBuildQuery_InvalidText(t *testing.T) {
	t.Parallel()

	_, err := tts.BuildQuery("\xff", "en", recordedKey)
	require.ErrorIs(t, err, token.ErrEncoding)
}

func TestSpeechClient_GenerateSpeech_Success(t *testing.T) {
	t.Parallel()

	fake := newFakeService(t)
	client := newTestClient(fake)

	audio, err := client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, []byte(testAudioData), audio)

	query, ok := fake.lastQuery.Load().(url.Values)
	require.True(t, ok)
	assert.Equal(t, helloToken, query.Get("tk"))
	assert.Equal(t, "5", query.Get("textlen"))
	assert.Equal(t, "hello", query.Get("q"))
	assert.Equal(t, "t", query.Get("client"))
	assert.Equal(t, tts.DefaultUserAgent, fake.lastAgent.Load())
	assert.Equal(t, int32(1), fake.keyHits.Load(), "key pair is fetched per request")
}

func TestSpeechClient_GenerateSpeech_DefaultsLanguage(t *testing.T) {
	t.Parallel()

	fake := newFakeService(t)
	client := newTestClient(fake, tts.WithUserAgent("custom/2.0"))

	_, err := client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello"})
	require.NoError(t, err)

	query, ok := fake.lastQuery.Load().(url.Values)
	require.True(t, ok)
	assert.Equal(t, "en", query.Get("tl"))
	assert.Equal(t, "custom/2.0", fake.lastAgent.Load())
}

func TestSpeechClient_GenerateSpeech_FetchesFreshKeyEachCall(t *testing.T) {
	t.Parallel()

	fake := newFakeService(t)
	client := newTestClient(fake)

	for range 3 {
		_, err := client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello"})
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), fake.keyHits.Load())
	assert.Equal(t, int32(3), fake.speechHits.Load())
}

func TestSpeechClient_GenerateSpeech_RejectionInvalidatesCachedKey(t *testing.T) {
	t.Parallel()

	fake := newFakeService(t)
	keys := tkk.NewCachedSupplier(
		tkk.NewHTTPSupplier(fake.server.URL, tts.DefaultUserAgent, 5*time.Second),
		time.Hour,
	)
	client := tts.NewSpeechClient(fake.server.URL, keys, 5*time.Second)

	_, err := client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello"})
	require.NoError(t, err)

	_, err = client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello again"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.keyHits.Load(), "cached key should be reused")

	_, err = client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: failMarker})
	require.ErrorIs(t, err, tts.ErrUpstreamStatus)

	_, err = client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), fake.keyHits.Load(), "rejection should force a fresh key")
}

func TestSpeechClient_GenerateSpeech_EmptyText(t *testing.T) {
	t.Parallel()

	fake := newFakeService(t)
	client := newTestClient(fake)

	_, err := client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: ""})
	require.ErrorIs(t, err, tts.ErrTextEmpty)
	assert.Equal(t, int32(0), fake.keyHits.Load())
}

func TestSpeechClient_GenerateSpeech_UpstreamErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		status      int
		contentType string
		audio       string
		wantErr     error
	}{
		{name: "forbidden", status: 403, contentType: "text/plain", audio: "bad token", wantErr: tts.ErrUpstreamStatus},
		{name: "html page", status: 200, contentType: "text/html; charset=UTF-8", audio: "<html>", wantErr: tts.ErrUnexpectedResponse},
		{name: "empty body", status: 200, contentType: "audio/mpeg", audio: "", wantErr: tts.ErrEmptyAudio},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			fake := newFakeServiceWith(t, testCase.status, testCase.contentType, testCase.audio)

			client := newTestClient(fake)

			_, err := client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello"})
			require.ErrorIs(t, err, testCase.wantErr)
		})
	}
}

func TestSpeechClient_GenerateSpeech_KeyFetchFailure(t *testing.T) {
	t.Parallel()

	fake := newFakeService(t)
	keys := tkk.NewHTTPSupplier(fake.server.URL+"/translate_tts", tts.DefaultUserAgent, time.Second)
	client := tts.NewSpeechClient(fake.server.URL, keys, time.Second)

	_, err := client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello"})
	require.ErrorIs(t, err, tkk.ErrKeyFetch)
}

func TestSpeechClient_StaticKeyAndMetrics(t *testing.T) {
	t.Parallel()

	fake := newFakeService(t)
	m := metrics.New()
	client := tts.NewSpeechClient(
		fake.server.URL,
		tkk.StaticSupplier{Pair: recordedKey},
		5*time.Second,
		tts.WithMetrics(m),
		tts.WithRateLimit(1000),
	)

	_, err := client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int32(0), fake.keyHits.Load())

	tk, key, err := client.Token(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, helloToken, tk.Value)
	assert.Equal(t, recordedKey, key)
}

func TestSpeechClient_RateLimitHonorsContext(t *testing.T) {
	t.Parallel()

	fake := newFakeService(t)
	client := tts.NewSpeechClient(
		fake.server.URL,
		tkk.StaticSupplier{Pair: recordedKey},
		5*time.Second,
		tts.WithRateLimit(0.001),
	)

	// The first request consumes the only burst token.
	_, err := client.GenerateSpeech(context.Background(), tts.SpeechRequest{Text: "hello"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = client.GenerateSpeech(ctx, tts.SpeechRequest{Text: "hello"})
	require.Error(t, err)
	assert.Equal(t, int32(1), fake.speechHits.Load())
}

func TestSpeechClient_HealthCheck(t *testing.T) {
	t.Parallel()

	fake := newFakeService(t)
	require.NoError(t, newTestClient(fake).HealthCheck(context.Background()))

	down := tts.NewSpeechClient("http://127.0.0.1:1", tkk.NewHTTPSupplier("http://127.0.0.1:1", "", time.Second), time.Second)
	require.Error(t, down.HealthCheck(context.Background()))
}
