package tts_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/translate-tts-service/internal/config"
)

const (
	recordedKeyPage = `<script>c._cfg={tkk:'406398.561666268'};</script>`
	testAudioData   = "ID3-mock-mp3-audio"
	helloToken      = "13708.394994"

	// Speech requests whose text contains failMarker are rejected.
	failMarker = "please fail"
)

// fakeService mimics the translation service: the landing page embeds the key
// pair and /translate_tts returns audio.
type fakeService struct {
	server       *httptest.Server
	keyHits      atomic.Int32
	speechHits   atomic.Int32
	lastQuery    atomic.Value
	lastAgent    atomic.Value
	speechStatus int
	contentType  string
	audio        string
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()

	return newFakeServiceWith(t, http.StatusOK, "audio/mpeg", testAudioData)
}

// newFakeServiceWith fixes the speech response before the server starts.
func newFakeServiceWith(t *testing.T, status int, contentType, audio string) *fakeService {
	t.Helper()

	fake := &fakeService{
		speechStatus: status,
		contentType:  contentType,
		audio:        audio,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(responseWriter http.ResponseWriter, _ *http.Request) {
		fake.keyHits.Add(1)
		_, _ = responseWriter.Write([]byte(recordedKeyPage))
	})
	mux.HandleFunc("/translate_tts", func(responseWriter http.ResponseWriter, request *http.Request) {
		fake.speechHits.Add(1)
		fake.lastQuery.Store(request.URL.Query())
		fake.lastAgent.Store(request.Header.Get("User-Agent"))

		if strings.Contains(request.URL.Query().Get("q"), failMarker) {
			http.Error(responseWriter, "rejected", http.StatusForbidden)

			return
		}

		responseWriter.Header().Set("Content-Type", fake.contentType)
		responseWriter.WriteHeader(fake.speechStatus)
		_, _ = responseWriter.Write([]byte(fake.audio))
	})

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)

	return fake
}

func createTestConfig(serviceURL string) *config.Config {
	cfg := config.Default()
	cfg.Translate.BaseURL = serviceURL
	cfg.Translate.KeyPageURL = serviceURL
	cfg.Translate.TimeoutSeconds = 5
	cfg.Translate.Workers = 2

	return cfg
}

func createTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	lg, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() { _ = lg.Close() })

	return lg
}
