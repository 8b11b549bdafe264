package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/storycard/storycard/internal/core"
	apperrors "github.com/storycard/storycard/internal/errors"
)

// MetadataResolver resolves a video URL to its metadata.
type MetadataResolver interface {
	Resolve(ctx context.Context, rawURL string) (core.VideoInfo, error)
}

// MetadataHandler serves GET /metadata?url=.
type MetadataHandler struct {
	Resolver MetadataResolver
}

// NewMetadataHandler returns a handler backed by resolver.
func NewMetadataHandler(resolver MetadataResolver) *MetadataHandler {
	return &MetadataHandler{Resolver: resolver}
}

func (h *MetadataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if rawURL == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("URL is required"))
		return
	}
	if h == nil || h.Resolver == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("metadata resolver not configured"))
		return
	}

	info, err := h.Resolver.Resolve(r.Context(), rawURL)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}
