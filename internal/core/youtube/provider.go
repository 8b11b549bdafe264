// Package youtube resolves pasted video links into VideoInfo using an ordered
// list of metadata providers.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/storycard/storycard/internal/core"
)

const (
	// DefaultDataAPIBaseURL is the structured video-details API.
	DefaultDataAPIBaseURL = "https://www.googleapis.com/youtube/v3"

	// DefaultOEmbedURL is the unauthenticated oEmbed-style endpoint.
	DefaultOEmbedURL = "https://noembed.com/embed"

	defaultTimeout = 10 * time.Second
	maxErrorBody   = 512
)

var (
	// ErrInvalidURL is returned when no video identifier can be extracted.
	ErrInvalidURL = errors.New("invalid youtube url")

	// ErrUpstream is returned when every provider failed.
	ErrUpstream = errors.New("could not fetch video data")
)

// Provider fetches metadata for a single video.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, rawURL, videoID string) (core.VideoInfo, error)
}

// statusError is a non-2xx response from a provider.
type statusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s request failed: status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func defaultClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return &http.Client{Timeout: defaultTimeout}
}

func getJSON(ctx context.Context, client *http.Client, provider, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := defaultClient(client).Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the API key.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = stripQuery(urlErr.URL)
		}
		return nil, fmt.Errorf("%s request: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &statusError{Provider: provider, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

func stripQuery(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	parsed.RawQuery = ""
	return parsed.String()
}
