// Package tts provides the speech endpoint client for the translation
// service and the engine that writes the returned audio to disk.
//
// Every request carries a "tk" token derived from the request text and the
// current tkk key pair. The audio payload is returned exactly as received.
package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/book-expert/translate-tts-service/internal/metrics"
	"github.com/book-expert/translate-tts-service/internal/tkk"
	"github.com/book-expert/translate-tts-service/internal/token"
)

// API endpoints and defaults.
const (
	DefaultBaseURL   = "https://translate.google.com"
	DefaultLanguage  = "en"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	apiTranslateTTS = "/translate_tts"
)

// Query parameter names and fixed values.
const (
	paramInputEncoding = "ie"
	paramQuery         = "q"
	paramLanguage      = "tl"
	paramTotal         = "total"
	paramIndex         = "idx"
	paramTextLen       = "textlen"
	paramToken         = "tk"
	paramClient        = "client"

	inputEncodingUTF8 = "UTF-8"
	singleSegment     = "1"
	firstSegment      = "0"
	clientName        = "t"
)

// HTTP headers.
const (
	headerUserAgent   = "User-Agent"
	headerContentType = "Content-Type"
	contentTypeHTML   = "text/html"
)

const errorBodySnippetLen = 256

// Static errors.
var (
	ErrTextEmpty          = errors.New("text cannot be empty")
	ErrEmptyAudio         = errors.New("received empty audio data")
	ErrUpstreamStatus     = errors.New("speech endpoint returned non-OK status")
	ErrUnexpectedResponse = errors.New("speech endpoint returned a page instead of audio")
)

const (
	errFmtUpstreamStatus = "%w: %s, body: %s"
	errFmtKeyPair        = "failed to obtain key pair: %w"
	errFmtToken          = "failed to derive token: %w"
)

// SpeechRequest is one synthesis request.
type SpeechRequest struct {
	// Text is sent verbatim as "q"; the token is derived from it.
	Text string

	// Language is the target language code ("tl"). Defaults to "en".
	Language string
}

// SpeechClient talks to the translation service's speech endpoint.
type SpeechClient struct {
	httpClient *http.Client
	keys       tkk.Supplier
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
	baseURL    string
	userAgent  string
}

// ClientOption customizes a SpeechClient.
type ClientOption func(*SpeechClient)

// WithUserAgent overrides the fixed browser user agent.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *SpeechClient) {
		if userAgent != "" {
			c.userAgent = userAgent
		}
	}
}

// WithRateLimit paces outbound speech requests. A non-positive rate disables
// pacing.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *SpeechClient) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
		}
	}
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(c *SpeechClient) {
		c.metrics = m
	}
}

// NewSpeechClient creates a client for the service at baseURL that obtains
// key pairs from keys. The timeout applies to every HTTP request.
func NewSpeechClient(
	baseURL string,
	keys tkk.Supplier,
	timeout time.Duration,
	opts ...ClientOption,
) *SpeechClient {
	client := &SpeechClient{
		httpClient: &http.Client{Timeout: timeout},
		keys:       keys,
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// BuildQuery assembles the speech endpoint query for text under key.
func BuildQuery(text, language string, key token.KeyPair) (url.Values, error) {
	tk, err := token.Compute(text, key)
	if err != nil {
		return nil, fmt.Errorf(errFmtToken, err)
	}

	query := url.Values{}
	query.Set(paramInputEncoding, inputEncodingUTF8)
	query.Set(paramQuery, text)
	query.Set(paramLanguage, language)
	query.Set(paramTotal, singleSegment)
	query.Set(paramIndex, firstSegment)
	query.Set(paramTextLen, strconv.Itoa(tk.TextLen))
	query.Set(paramToken, tk.Value)
	query.Set(paramClient, clientName)

	return query, nil
}

// Token fetches the current key pair and derives the token for text.
func (c *SpeechClient) Token(ctx context.Context, text string) (token.Token, token.KeyPair, error) {
	key, err := c.keys.FetchKeyPair(ctx)
	if err != nil {
		return token.Token{}, token.KeyPair{}, fmt.Errorf(errFmtKeyPair, err)
	}

	tk, err := token.Compute(text, key)
	if err != nil {
		return token.Token{}, token.KeyPair{}, fmt.Errorf(errFmtToken, err)
	}

	c.metrics.TokenGenerated()

	return tk, key, nil
}

// GenerateSpeech fetches a fresh key pair, signs the request and returns the
// audio payload unmodified.
func (c *SpeechClient) GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	started := time.Now()

	audio, err := c.generateSpeech(ctx, req)
	c.metrics.SpeechCompleted(time.Since(started), len(audio), err)

	return audio, err
}

func (c *SpeechClient) generateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	if req.Language == "" {
		req.Language = DefaultLanguage
	}

	key, err := c.keys.FetchKeyPair(ctx)
	if err != nil {
		return nil, fmt.Errorf(errFmtKeyPair, err)
	}

	query, err := BuildQuery(req.Text, req.Language, key)
	if err != nil {
		return nil, err
	}

	c.metrics.TokenGenerated()

	if c.limiter != nil {
		waitErr := c.limiter.Wait(ctx)
		if waitErr != nil {
			return nil, fmt.Errorf("rate limiter wait aborted: %w", waitErr)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.SpeechURL(query), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerUserAgent, c.userAgent)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to speech endpoint at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.invalidateKey()

		return nil, c.parseErrorResponse(resp)
	}

	// A blocked client receives an HTML interstitial with status 200.
	if strings.HasPrefix(resp.Header.Get(headerContentType), contentTypeHTML) {
		return nil, ErrUnexpectedResponse
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// SpeechURL returns the full endpoint URL for an already built query.
func (c *SpeechClient) SpeechURL(query url.Values) string {
	return c.baseURL + apiTranslateTTS + "?" + query.Encode()
}

// HealthCheck verifies that the service is reachable and still publishes a
// key pair.
func (c *SpeechClient) HealthCheck(ctx context.Context) error {
	_, err := c.keys.FetchKeyPair(ctx)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}

	return nil
}

// invalidateKey drops a cached key pair after the service rejects a request.
func (c *SpeechClient) invalidateKey() {
	if cache, ok := c.keys.(interface{ Invalidate() }); ok {
		cache.Invalidate()
	}
}

func (c *SpeechClient) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodySnippetLen))

	return fmt.Errorf(errFmtUpstreamStatus, ErrUpstreamStatus, resp.Status, string(body))
}
