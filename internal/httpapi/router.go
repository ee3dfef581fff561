package httpapi

import (
	"net/http"
	"time"

	"github.com/book-expert/logger"
)

// NewRouter registers the API routes. A nil metricsHandler leaves /metrics
// unregistered.
func NewRouter(handler *Handler, metricsHandler http.Handler, log *logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /tts", withLogging(log, handler.Speech))
	mux.HandleFunc("GET /token", withLogging(log, handler.Token))
	mux.HandleFunc("GET /health", handler.Health)

	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}

	return mux
}

// withLogging logs each request with its status and duration.
func withLogging(log *logger.Logger, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(recorder, r)

		log.Info("%s %s -> %d (%d ms)", r.Method, r.URL.Path, recorder.status, time.Since(started).Milliseconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
