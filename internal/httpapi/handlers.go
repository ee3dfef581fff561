// Package httpapi serves synthesized speech, the request token for a text,
// service health and metrics over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/book-expert/logger"

	"github.com/book-expert/translate-tts-service/internal/token"
	"github.com/book-expert/translate-tts-service/internal/tts"
	"github.com/book-expert/translate-tts-service/internal/tts/ttsutils"
)

// Query parameters.
const (
	paramText     = "text"
	paramLanguage = "lang"
	paramDownload = "download"
)

const (
	contentTypeAudio = "audio/mpeg"
	contentTypeJSON  = "application/json"

	dispositionInline     = "inline"
	dispositionAttachment = "attachment"
)

// TokenResponse is the body of GET /token.
type TokenResponse struct {
	Token   string `json:"tk"`
	TextLen int    `json:"textlen"`
	KeyPair string `json:"tkk"`
}

// ErrorResponse is the body of every non-audio error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler serves the API on top of a speech client.
type Handler struct {
	client          *tts.SpeechClient
	defaultLanguage string
	log             *logger.Logger
}

// NewHandler creates a Handler. Requests without a lang parameter use
// defaultLanguage.
func NewHandler(client *tts.SpeechClient, defaultLanguage string, log *logger.Logger) *Handler {
	if defaultLanguage == "" {
		defaultLanguage = tts.DefaultLanguage
	}

	return &Handler{
		client:          client,
		defaultLanguage: defaultLanguage,
		log:             log,
	}
}

// Speech handles GET /tts. The audio is returned inline unless the download
// parameter is truthy, in which case it is sent as an attachment named after
// the language and text.
func (h *Handler) Speech(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	text := query.Get(paramText)
	if text == "" {
		h.errorResponse(w, http.StatusBadRequest, "text is required")

		return
	}

	language, err := tts.ResolveLanguage(query.Get(paramLanguage), h.defaultLanguage)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())

		return
	}

	audioData, err := h.client.GenerateSpeech(r.Context(), tts.SpeechRequest{
		Text:     text,
		Language: language,
	})
	if err != nil {
		h.log.Error("Speech request for %q failed: %v", language, err)
		h.errorResponse(w, statusForError(err), err.Error())

		return
	}

	disposition := dispositionInline
	if isTruthy(query.Get(paramDownload)) {
		disposition = mime.FormatMediaType(dispositionAttachment, map[string]string{
			"filename": ttsutils.DownloadFilename(language, text),
		})
	}

	w.Header().Set("Content-Type", contentTypeAudio)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(audioData)))
	w.WriteHeader(http.StatusOK)

	_, writeErr := w.Write(audioData)
	if writeErr != nil {
		h.log.Warn("Failed to write audio response: %v", writeErr)
	}
}

// Token handles GET /token and reports the token the service would send for
// text under the current key pair.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if !query.Has(paramText) {
		h.errorResponse(w, http.StatusBadRequest, "text is required")

		return
	}

	tk, key, err := h.client.Token(r.Context(), query.Get(paramText))
	if err != nil {
		h.log.Error("Token request failed: %v", err)
		h.errorResponse(w, statusForError(err), err.Error())

		return
	}

	h.jsonResponse(w, http.StatusOK, TokenResponse{
		Token:   tk.Value,
		TextLen: tk.TextLen,
		KeyPair: key.String(),
	})
}

// Health handles GET /health. It reports 503 when no key pair can be fetched.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	err := h.client.HealthCheck(r.Context())
	if err != nil {
		h.log.Warn("Health check failed: %v", err)
		h.errorResponse(w, http.StatusServiceUnavailable, err.Error())

		return
	}

	w.WriteHeader(http.StatusOK)

	_, writeErr := w.Write([]byte("OK"))
	if writeErr != nil {
		h.log.Warn("Failed to write health response: %v", writeErr)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)

	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		h.log.Error("Failed to encode JSON response: %v", err)
	}
}

func (h *Handler) errorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.jsonResponse(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}

// statusForError maps text problems to 400 and everything upstream to 502.
func statusForError(err error) int {
	switch {
	case errors.Is(err, token.ErrEncoding), errors.Is(err, tts.ErrTextEmpty):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func isTruthy(value string) bool {
	truthy, err := strconv.ParseBool(value)

	return err == nil && truthy
}
