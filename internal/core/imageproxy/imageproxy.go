// Package imageproxy re-serves thumbnail and avatar images from a fixed set of
// video platform hosts so that browser-side rasterizers can read their pixels.
package imageproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storycard/storycard/internal/metrics"
)

const (
	// DefaultMaxBytes caps the size of a proxied image.
	DefaultMaxBytes int64 = 10 << 20

	// DefaultTimeout bounds a single upstream image fetch.
	DefaultTimeout = 10 * time.Second

	defaultContentType = "image/jpeg"
	upstreamUserAgent  = "Mozilla/5.0"
)

// AllowedHosts is the exact, case-sensitive set of hostnames that may be fetched.
var AllowedHosts = []string{
	"img.youtube.com",
	"i.ytimg.com",
	"yt3.ggpht.com",
	"yt3.googleusercontent.com",
}

var (
	// ErrBadRequest is returned for a missing or unparseable URL.
	ErrBadRequest = errors.New("bad image url")

	// ErrForbidden is returned when the URL host is not allow-listed.
	ErrForbidden = errors.New("domain not allowed")

	// ErrUpstream is returned when the image could not be fetched.
	ErrUpstream = errors.New("failed to fetch image")
)

// Image is a fetched image body and its media type.
type Image struct {
	Bytes       []byte
	ContentType string
}

// Proxy fetches allow-listed images.
type Proxy struct {
	Client   *http.Client
	MaxBytes int64
}

// New returns a proxy using client, or a default client when nil.
func New(client *http.Client, maxBytes int64) *Proxy {
	return &Proxy{Client: client, MaxBytes: maxBytes}
}

// NewClient returns an HTTP client that refuses redirects leaving the allow-list.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			if !HostAllowed(req.URL.Hostname()) {
				return fmt.Errorf("%w: redirect to %s", ErrForbidden, req.URL.Hostname())
			}
			return nil
		},
	}
}

// Validate parses rawURL and enforces the host allow-list.
func Validate(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: missing url parameter", ErrBadRequest)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: invalid url", ErrBadRequest)
	}
	if !HostAllowed(parsed.Hostname()) {
		return nil, fmt.Errorf("%w: %s", ErrForbidden, parsed.Hostname())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrBadRequest, parsed.Scheme)
	}

	return parsed, nil
}

// HostAllowed reports whether host is in AllowedHosts.
func HostAllowed(host string) bool {
	for _, allowed := range AllowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

// Fetch validates rawURL and downloads the image.
func (p *Proxy) Fetch(ctx context.Context, rawURL string) (*Image, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := Validate(rawURL)
	if err != nil {
		return nil, err
	}
	img, err := p.fetch(ctx, target.String())
	metrics.RecordImageProxyFetch(target.Hostname(), err == nil)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (p *Proxy) fetch(ctx context.Context, target string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("User-Agent", upstreamUserAgent)

	resp, err := p.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: upstream status %d", ErrUpstream, resp.StatusCode)
	}

	limit := p.maxBytes()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrUpstream, limit)
	}

	contentType := strings.TrimSpace(resp.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = defaultContentType
	}

	return &Image{Bytes: body, ContentType: contentType}, nil
}

func (p *Proxy) client() *http.Client {
	if p != nil && p.Client != nil {
		return p.Client
	}
	return NewClient(DefaultTimeout)
}

func (p *Proxy) maxBytes() int64 {
	if p != nil && p.MaxBytes > 0 {
		return p.MaxBytes
	}
	return DefaultMaxBytes
}
