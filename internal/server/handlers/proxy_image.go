package handlers

import (
	"context"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/core/imageproxy"
	"github.com/storycard/storycard/internal/observability"
)

// ImageCacheControl is sent with every proxied image.
const ImageCacheControl = "public, max-age=3600, immutable"

// ImageFetcher fetches an allow-listed image.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*imageproxy.Image, error)
}

// ProxyImageHandler serves GET /proxy-image?url=.
type ProxyImageHandler struct {
	Fetcher ImageFetcher
}

// NewProxyImageHandler returns a handler backed by fetcher.
func NewProxyImageHandler(fetcher ImageFetcher) *ProxyImageHandler {
	return &ProxyImageHandler{Fetcher: fetcher}
}

func (h *ProxyImageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fetcher := ImageFetcher(imageproxy.New(nil, 0))
	if h != nil && h.Fetcher != nil {
		fetcher = h.Fetcher
	}

	img, err := fetcher.Fetch(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Bytes)))
	w.Header().Set("Cache-Control", ImageCacheControl)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(img.Bytes); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write proxied image", zap.Error(err))
	}
}
