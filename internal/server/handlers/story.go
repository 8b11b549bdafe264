package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/core"
	"github.com/storycard/storycard/internal/core/story"
	apperrors "github.com/storycard/storycard/internal/errors"
	"github.com/storycard/storycard/internal/observability"
)

// StoryRenderer renders a story card to PNG bytes.
type StoryRenderer interface {
	RenderPNG(ctx context.Context, cfg core.StoryConfig) ([]byte, error)
}

// StoryHandler serves GET /story.png?url=&message=&accent=&accent_line=.
type StoryHandler struct {
	Resolver MetadataResolver
	Renderer StoryRenderer
	Filename string
}

// NewStoryHandler returns a story export handler.
func NewStoryHandler(resolver MetadataResolver, renderer StoryRenderer, filename string) *StoryHandler {
	return &StoryHandler{Resolver: resolver, Renderer: renderer, Filename: filename}
}

func (h *StoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Resolver == nil || h.Renderer == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("story export not configured"))
		return
	}

	query := r.URL.Query()
	rawURL := strings.TrimSpace(query.Get("url"))
	if rawURL == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("URL is required"))
		return
	}

	cfg, err := storyConfigFromQuery(query.Get("message"), query.Get("accent"), query.Get("accent_line"))
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Invalid story options"))
		return
	}

	info, err := h.Resolver.Resolve(r.Context(), rawURL)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}
	cfg.VideoInfo = &info

	body, err := h.Renderer.RenderPNG(r.Context(), cfg)
	if err != nil {
		respondWithDomainError(w, r, err)
		return
	}

	filename := h.Filename
	if strings.TrimSpace(filename) == "" {
		filename = story.Filename
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil && observability.ServerLogger != nil {
		observability.ServerLogger.Warn("Failed to write story image", zap.Error(err))
	}
}

// storyConfigFromQuery applies optional overrides on top of the defaults.
func storyConfigFromQuery(message, accent, accentLine string) (core.StoryConfig, error) {
	cfg := core.NewStoryConfig(nil)

	if strings.TrimSpace(message) != "" {
		cfg.CustomMessage = message
	}
	if accent = strings.TrimSpace(accent); accent != "" {
		cfg.AccentColor = accent
	}
	if accentLine = strings.TrimSpace(accentLine); accentLine != "" {
		show, err := strconv.ParseBool(accentLine)
		if err != nil {
			return cfg, fmt.Errorf("accent_line must be a boolean: %w", err)
		}
		cfg.ShowAccentLine = show
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
