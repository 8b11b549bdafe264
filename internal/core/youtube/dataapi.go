package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/storycard/storycard/internal/core"
)

const dataAPIProviderName = "data_api"

// DataAPIProvider queries the keyed video-details API, then looks up the
// channel avatar on a best-effort basis.
type DataAPIProvider struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Logger  *logging.Logger
}

type dataAPIThumbnail struct {
	URL string `json:"url"`
}

type dataAPIThumbnails struct {
	Default  *dataAPIThumbnail `json:"default"`
	Medium   *dataAPIThumbnail `json:"medium"`
	High     *dataAPIThumbnail `json:"high"`
	Standard *dataAPIThumbnail `json:"standard"`
	Maxres   *dataAPIThumbnail `json:"maxres"`
}

type dataAPIVideosResp struct {
	Items []struct {
		Snippet struct {
			Title        string            `json:"title"`
			ChannelTitle string            `json:"channelTitle"`
			ChannelID    string            `json:"channelId"`
			Thumbnails   dataAPIThumbnails `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type dataAPIChannelsResp struct {
	Items []struct {
		Snippet struct {
			Thumbnails dataAPIThumbnails `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

// Name returns the provider name.
func (p *DataAPIProvider) Name() string {
	return dataAPIProviderName
}

// Fetch resolves title, channel and best thumbnail for videoID.
func (p *DataAPIProvider) Fetch(ctx context.Context, _ string, videoID string) (core.VideoInfo, error) {
	if p == nil || strings.TrimSpace(p.APIKey) == "" {
		return core.VideoInfo{}, errors.New("data api provider is not configured")
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", videoID)
	params.Set("key", p.APIKey)

	resp, err := getJSON(ctx, p.Client, dataAPIProviderName, p.baseURL()+"/videos?"+params.Encode())
	if err != nil {
		return core.VideoInfo{}, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	var result dataAPIVideosResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.VideoInfo{}, fmt.Errorf("decode videos response: %w", err)
	}
	if len(result.Items) == 0 {
		return core.VideoInfo{}, errors.New("video not found")
	}

	snippet := result.Items[0].Snippet
	thumbnail := firstThumbnail(
		snippet.Thumbnails.Maxres,
		snippet.Thumbnails.Standard,
		snippet.Thumbnails.High,
	)
	if thumbnail == "" {
		thumbnail = ThumbnailURL(videoID)
	}

	return core.VideoInfo{
		Title:         snippet.Title,
		ChannelTitle:  snippet.ChannelTitle,
		Thumbnail:     thumbnail,
		ChannelAvatar: p.channelAvatar(ctx, snippet.ChannelID),
		VideoID:       videoID,
	}, nil
}

// channelAvatar never fails the resolution; any problem yields nil.
func (p *DataAPIProvider) channelAvatar(ctx context.Context, channelID string) *string {
	if strings.TrimSpace(channelID) == "" {
		return nil
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("id", channelID)
	params.Set("key", p.APIKey)

	resp, err := getJSON(ctx, p.Client, dataAPIProviderName, p.baseURL()+"/channels?"+params.Encode())
	if err != nil {
		p.warn("channel avatar lookup failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	var result dataAPIChannelsResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		p.warn("channel avatar decode failed", zap.String("channel_id", channelID), zap.Error(err))
		return nil
	}
	if len(result.Items) == 0 {
		return nil
	}

	thumbs := result.Items[0].Snippet.Thumbnails
	return core.StringPtr(firstThumbnail(thumbs.Medium, thumbs.Default))
}

func (p *DataAPIProvider) baseURL() string {
	base := strings.TrimSpace(p.BaseURL)
	if base == "" {
		base = DefaultDataAPIBaseURL
	}
	return strings.TrimRight(base, "/")
}

func (p *DataAPIProvider) warn(msg string, fields ...zap.Field) {
	if p.Logger != nil {
		p.Logger.Warn(msg, fields...)
	}
}

func firstThumbnail(candidates ...*dataAPIThumbnail) string {
	for _, candidate := range candidates {
		if candidate != nil && strings.TrimSpace(candidate.URL) != "" {
			return candidate.URL
		}
	}
	return ""
}
