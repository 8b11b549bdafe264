package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/storycard/storycard/internal/core"
)

const (
	oembedProviderName = "oembed"

	fallbackTitle   = "Untitled video"
	fallbackChannel = "Channel"
)

// OEmbedProvider queries an unauthenticated oEmbed-style endpoint. It has no
// avatar data, and its thumbnails are low resolution, so the thumbnail is
// synthesized from the video identifier instead.
type OEmbedProvider struct {
	Client   *http.Client
	Endpoint string
}

type oembedResp struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
	Error      string `json:"error"`
}

// Name returns the provider name.
func (p *OEmbedProvider) Name() string {
	return oembedProviderName
}

// Fetch resolves title and channel name for rawURL.
func (p *OEmbedProvider) Fetch(ctx context.Context, rawURL string, videoID string) (core.VideoInfo, error) {
	endpoint := DefaultOEmbedURL
	var client *http.Client
	if p != nil {
		client = p.Client
		if strings.TrimSpace(p.Endpoint) != "" {
			endpoint = strings.TrimSpace(p.Endpoint)
		}
	}

	reqURL := endpoint + "?url=" + url.QueryEscape(rawURL)
	resp, err := getJSON(ctx, client, oembedProviderName, reqURL)
	if err != nil {
		return core.VideoInfo{}, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	var result oembedResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.VideoInfo{}, fmt.Errorf("decode oembed response: %w", err)
	}
	if result.Error != "" {
		return core.VideoInfo{}, errors.New(result.Error)
	}

	title := strings.TrimSpace(result.Title)
	if title == "" {
		title = fallbackTitle
	}
	channel := strings.TrimSpace(result.AuthorName)
	if channel == "" {
		channel = fallbackChannel
	}

	return core.VideoInfo{
		Title:         title,
		ChannelTitle:  channel,
		Thumbnail:     ThumbnailURL(videoID),
		ChannelAvatar: nil,
		VideoID:       videoID,
	}, nil
}
