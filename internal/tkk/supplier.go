package tkk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/translate-tts-service/internal/token"
)

// DefaultPageURL is the page that embeds the current key pair.
const DefaultPageURL = "https://translate.google.com"

const (
	headerUserAgent = "User-Agent"
	maxPageBytes    = 4 << 20

	errFmtCreateRequest = "%w: failed to create request: %w"
	errFmtSendRequest   = "%w: request to %s failed: %w"
	errFmtBadStatus     = "%w: %s returned status %s"
	errFmtReadBody      = "%w: failed to read response from %s: %w"
)

// Supplier returns the current key pair.
type Supplier interface {
	FetchKeyPair(ctx context.Context) (token.KeyPair, error)
}

// HTTPSupplier fetches the key pair fresh on every call.
type HTTPSupplier struct {
	httpClient *http.Client
	pageURL    string
	userAgent  string
}

// NewHTTPSupplier creates a supplier reading pageURL with the given user agent.
func NewHTTPSupplier(pageURL, userAgent string, timeout time.Duration) *HTTPSupplier {
	return &HTTPSupplier{
		httpClient: &http.Client{Timeout: timeout},
		pageURL:    pageURL,
		userAgent:  userAgent,
	}
}

// FetchKeyPair issues a GET against the page and extracts the tkk literal.
func (s *HTTPSupplier) FetchKeyPair(ctx context.Context) (token.KeyPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pageURL, http.NoBody)
	if err != nil {
		return token.KeyPair{}, fmt.Errorf(errFmtCreateRequest, ErrKeyFetch, err)
	}

	if s.userAgent != "" {
		req.Header.Set(headerUserAgent, s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return token.KeyPair{}, fmt.Errorf(errFmtSendRequest, ErrKeyFetch, s.pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return token.KeyPair{}, fmt.Errorf(errFmtBadStatus, ErrKeyFetch, s.pageURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return token.KeyPair{}, fmt.Errorf(errFmtReadBody, ErrKeyFetch, s.pageURL, err)
	}

	return ExtractKeyPair(body)
}

// StaticSupplier always returns the same pair. Used for replayed fixtures and
// for callers that already hold a key pair.
type StaticSupplier struct {
	Pair token.KeyPair
}

// FetchKeyPair returns the stored pair.
func (s StaticSupplier) FetchKeyPair(_ context.Context) (token.KeyPair, error) {
	return s.Pair, nil
}
