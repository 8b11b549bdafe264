package handlers

import (
	"context"
	"errors"
	"net/http"

	fulmenerrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/storycard/storycard/internal/core/imageproxy"
	"github.com/storycard/storycard/internal/core/story"
	"github.com/storycard/storycard/internal/core/youtube"
	apperrors "github.com/storycard/storycard/internal/errors"
)

var defaultHTTPErrorResponder = func(w http.ResponseWriter, r *http.Request, err error) {
	apperrors.RespondWithError(w, r, err)
}

var httpErrorResponder = defaultHTTPErrorResponder

// SetHTTPErrorResponder allows the server package to inject the centralized error handler.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		httpErrorResponder = defaultHTTPErrorResponder
		return
	}
	httpErrorResponder = responder
}

// ResetHTTPErrorResponder restores the default responder (useful for tests).
func ResetHTTPErrorResponder() {
	httpErrorResponder = defaultHTTPErrorResponder
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder(w, r, err)
}

// domainEnvelope maps errors from the core packages to API envelopes.
func domainEnvelope(ctx context.Context, err error) *fulmenerrors.ErrorEnvelope {
	switch {
	case errors.Is(err, youtube.ErrInvalidURL):
		return apperrors.WrapInvalidInput(ctx, err,
			"Invalid YouTube URL. Accepted formats: youtube.com/watch?v=, youtu.be/, youtube.com/embed/, youtube.com/shorts/")
	case errors.Is(err, youtube.ErrUpstream):
		return apperrors.WrapUpstream(ctx, err, "Could not fetch video data")
	case errors.Is(err, imageproxy.ErrBadRequest):
		return apperrors.WrapInvalidInput(ctx, err, "Invalid image URL")
	case errors.Is(err, imageproxy.ErrForbidden):
		return apperrors.WrapForbidden(ctx, err, "Domain not allowed")
	case errors.Is(err, imageproxy.ErrUpstream):
		return apperrors.WrapUpstream(ctx, err, "Error fetching image")
	case errors.Is(err, story.ErrInvalidConfig):
		return apperrors.WrapInvalidInput(ctx, err, "Invalid story options")
	case errors.Is(err, story.ErrRender):
		return apperrors.WrapRender(ctx, err, "Failed to generate image. Please try again.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperrors.WrapUpstream(ctx, err, "Request timed out")
	default:
		return apperrors.WrapInternal(ctx, err, "unexpected error")
	}
}

func respondWithDomainError(w http.ResponseWriter, r *http.Request, err error) {
	respondWithError(w, r, domainEnvelope(r.Context(), err))
}
