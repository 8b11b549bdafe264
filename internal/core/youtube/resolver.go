package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/core"
	"github.com/storycard/storycard/internal/metrics"
)

// Options configures a Resolver built by NewResolver.
type Options struct {
	APIKey         string
	DataAPIBaseURL string
	OEmbedURL      string
	Client         *http.Client
	Logger         *logging.Logger
}

// Resolver tries each provider in order until one succeeds.
type Resolver struct {
	Providers []Provider
	Logger    *logging.Logger
}

// NewResolver builds the provider list. The keyed provider is only included
// when an API key is configured; the oEmbed provider is always last.
func NewResolver(opts Options) *Resolver {
	providers := make([]Provider, 0, 2)
	if key := strings.TrimSpace(opts.APIKey); key != "" {
		providers = append(providers, &DataAPIProvider{
			Client:  opts.Client,
			BaseURL: opts.DataAPIBaseURL,
			APIKey:  key,
			Logger:  opts.Logger,
		})
	}
	providers = append(providers, &OEmbedProvider{
		Client:   opts.Client,
		Endpoint: opts.OEmbedURL,
	})

	return &Resolver{Providers: providers, Logger: opts.Logger}
}

// Resolve extracts the video identifier from rawURL and fetches its metadata.
//
// Errors wrap ErrInvalidURL when no identifier is present, and ErrUpstream
// (together with the last provider error) when every provider failed.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (core.VideoInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return core.VideoInfo{}, fmt.Errorf("%w: url is required", ErrInvalidURL)
	}

	videoID := ExtractVideoID(rawURL)
	if videoID == "" {
		return core.VideoInfo{}, fmt.Errorf("%w: accepted formats are youtube.com/watch?v=, youtu.be/, youtube.com/embed/, youtube.com/shorts/", ErrInvalidURL)
	}

	if r == nil || len(r.Providers) == 0 {
		return core.VideoInfo{}, fmt.Errorf("%w: no metadata providers configured", ErrUpstream)
	}

	var lastErr error
	for _, provider := range r.Providers {
		info, err := provider.Fetch(ctx, rawURL, videoID)
		metrics.RecordResolve(provider.Name(), err == nil)
		if err == nil {
			r.debug("video metadata resolved",
				zap.String("provider", provider.Name()),
				zap.String("video_id", videoID),
				zap.Bool("has_avatar", info.HasAvatar()))
			return info, nil
		}

		lastErr = err
		r.warn("metadata provider failed",
			zap.String("provider", provider.Name()),
			zap.String("video_id", videoID),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
	}

	return core.VideoInfo{}, fmt.Errorf("%w: %w", ErrUpstream, lastErr)
}

// IsInvalidURL reports whether err came from an unusable input URL.
func IsInvalidURL(err error) bool {
	return errors.Is(err, ErrInvalidURL)
}

func (r *Resolver) debug(msg string, fields ...zap.Field) {
	if r.Logger != nil {
		r.Logger.Debug(msg, fields...)
	}
}

func (r *Resolver) warn(msg string, fields ...zap.Field) {
	if r.Logger != nil {
		r.Logger.Warn(msg, fields...)
	}
}

// ProviderNames lists the configured providers in the order they are tried.
func (r *Resolver) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.Providers))
	for _, provider := range r.Providers {
		names = append(names, provider.Name())
	}
	return names
}
