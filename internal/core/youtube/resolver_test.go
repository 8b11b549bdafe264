package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/storycard/storycard/internal/core"
)

const videosBody = `{"items":[{"snippet":{"title":"T","channelTitle":"C","channelId":"chX",
"thumbnails":{"high":{"url":"https://i.ytimg.com/vi/abc123/hqdefault.jpg"},
"maxres":{"url":"https://i.ytimg.com/vi/abc123/maxresdefault.jpg"}}}}]}`

type fakeUpstream struct {
	server        *httptest.Server
	videosCalls   atomic.Int32
	channelsCalls atomic.Int32
	oembedCalls   atomic.Int32
}

func newFakeUpstream(t *testing.T, videos, channels, oembed http.HandlerFunc) *fakeUpstream {
	t.Helper()

	f := &fakeUpstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/youtube/v3/videos", func(w http.ResponseWriter, r *http.Request) {
		f.videosCalls.Add(1)
		videos(w, r)
	})
	mux.HandleFunc("/youtube/v3/channels", func(w http.ResponseWriter, r *http.Request) {
		f.channelsCalls.Add(1)
		channels(w, r)
	})
	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		f.oembedCalls.Add(1)
		oembed(w, r)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUpstream) resolver(apiKey string) *Resolver {
	return NewResolver(Options{
		APIKey:         apiKey,
		DataAPIBaseURL: f.server.URL + "/youtube/v3",
		OEmbedURL:      f.server.URL + "/embed",
		Client:         f.server.Client(),
	})
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestResolvePrimaryWithAvatar(t *testing.T) {
	up := newFakeUpstream(t,
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "abc123", r.URL.Query().Get("id"))
			require.Equal(t, "secret", r.URL.Query().Get("key"))
			require.Equal(t, "snippet", r.URL.Query().Get("part"))
			jsonHandler(http.StatusOK, videosBody)(w, r)
		},
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "chX", r.URL.Query().Get("id"))
			jsonHandler(http.StatusOK, `{"items":[{"snippet":{"thumbnails":{"default":{"url":"https://yt3.ggpht.com/d.jpg"},"medium":{"url":"https://yt3.ggpht.com/m.jpg"}}}}]}`)(w, r)
		},
		jsonHandler(http.StatusOK, `{}`),
	)

	info, err := up.resolver("secret").Resolve(context.Background(), "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	require.Equal(t, "T", info.Title)
	require.Equal(t, "C", info.ChannelTitle)
	require.Equal(t, "https://i.ytimg.com/vi/abc123/maxresdefault.jpg", info.Thumbnail)
	require.True(t, info.HasAvatar())
	require.Equal(t, "https://yt3.ggpht.com/m.jpg", info.AvatarURL())
	require.Equal(t, "abc123", info.VideoID)
	require.Zero(t, up.oembedCalls.Load())
}

func TestResolveAvatarFailureYieldsNullAvatar(t *testing.T) {
	up := newFakeUpstream(t,
		jsonHandler(http.StatusOK, videosBody),
		jsonHandler(http.StatusForbidden, `{"error":{"message":"quota"}}`),
		jsonHandler(http.StatusOK, `{}`),
	)

	info, err := up.resolver("secret").Resolve(context.Background(), "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	require.Equal(t, core.VideoInfo{
		Title:         "T",
		ChannelTitle:  "C",
		Thumbnail:     "https://i.ytimg.com/vi/abc123/maxresdefault.jpg",
		ChannelAvatar: nil,
		VideoID:       "abc123",
	}, info)
	require.EqualValues(t, 1, up.channelsCalls.Load())
	require.Zero(t, up.oembedCalls.Load())
}

func TestResolveThumbnailPriority(t *testing.T) {
	tests := []struct {
		name       string
		thumbnails string
		want       string
	}{
		{"standard over high", `{"high":{"url":"h"},"standard":{"url":"s"}}`, "s"},
		{"high only", `{"default":{"url":"d"},"high":{"url":"h"}}`, "h"},
		{"constructed fallback", `{"default":{"url":"d"}}`, "https://img.youtube.com/vi/abc123/maxresdefault.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"items":[{"snippet":{"title":"T","channelTitle":"C","channelId":"","thumbnails":` + tt.thumbnails + `}}]}`
			up := newFakeUpstream(t,
				jsonHandler(http.StatusOK, body),
				jsonHandler(http.StatusOK, `{}`),
				jsonHandler(http.StatusOK, `{}`),
			)

			info, err := up.resolver("secret").Resolve(context.Background(), "https://youtu.be/abc123")
			require.NoError(t, err)
			require.Equal(t, tt.want, info.Thumbnail)
			require.Zero(t, up.channelsCalls.Load(), "no channel id means no avatar lookup")
		})
	}
}

func TestResolvePrimaryFailureFallsBack(t *testing.T) {
	up := newFakeUpstream(t,
		jsonHandler(http.StatusInternalServerError, `boom`),
		jsonHandler(http.StatusOK, `{}`),
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "https://www.youtube.com/shorts/abc123", r.URL.Query().Get("url"))
			jsonHandler(http.StatusOK, `{"title":"Fallback title","author_name":"Fallback channel"}`)(w, r)
		},
	)

	info, err := up.resolver("secret").Resolve(context.Background(), "https://www.youtube.com/shorts/abc123")
	require.NoError(t, err)
	require.Equal(t, "Fallback title", info.Title)
	require.Equal(t, "Fallback channel", info.ChannelTitle)
	require.Equal(t, "https://img.youtube.com/vi/abc123/maxresdefault.jpg", info.Thumbnail)
	require.Nil(t, info.ChannelAvatar)
	require.EqualValues(t, 1, up.videosCalls.Load())
	require.EqualValues(t, 1, up.oembedCalls.Load())
}

func TestResolveVideoNotFoundFallsBack(t *testing.T) {
	up := newFakeUpstream(t,
		jsonHandler(http.StatusOK, `{"items":[]}`),
		jsonHandler(http.StatusOK, `{}`),
		jsonHandler(http.StatusOK, `{"title":"","author_name":""}`),
	)

	info, err := up.resolver("secret").Resolve(context.Background(), "https://www.youtube.com/embed/abc123")
	require.NoError(t, err)
	require.Equal(t, fallbackTitle, info.Title)
	require.Equal(t, fallbackChannel, info.ChannelTitle)
}

func TestResolveWithoutKeyNeverCallsPrimary(t *testing.T) {
	up := newFakeUpstream(t,
		jsonHandler(http.StatusOK, videosBody),
		jsonHandler(http.StatusOK, `{}`),
		jsonHandler(http.StatusOK, `{"title":"T","author_name":"C"}`),
	)

	resolver := up.resolver("  ")
	require.Len(t, resolver.Providers, 1)

	info, err := resolver.Resolve(context.Background(), "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	require.Equal(t, "T", info.Title)
	require.Nil(t, info.ChannelAvatar)
	require.Zero(t, up.videosCalls.Load())
	require.Zero(t, up.channelsCalls.Load())
}

func TestResolveAllProvidersFail(t *testing.T) {
	up := newFakeUpstream(t,
		jsonHandler(http.StatusInternalServerError, `primary down`),
		jsonHandler(http.StatusOK, `{}`),
		jsonHandler(http.StatusOK, `{"error":"no matching providers found"}`),
	)

	_, err := up.resolver("secret").Resolve(context.Background(), "https://www.youtube.com/watch?v=abc123")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUpstream))
	require.Contains(t, err.Error(), "no matching providers found")
	require.EqualValues(t, 1, up.videosCalls.Load())
	require.EqualValues(t, 1, up.oembedCalls.Load())
}

func TestResolveInvalidURL(t *testing.T) {
	up := newFakeUpstream(t,
		jsonHandler(http.StatusOK, videosBody),
		jsonHandler(http.StatusOK, `{}`),
		jsonHandler(http.StatusOK, `{}`),
	)

	for _, raw := range []string{"", "   ", "https://www.youtube.com/results?search_query=go"} {
		_, err := up.resolver("secret").Resolve(context.Background(), raw)
		require.Error(t, err)
		require.True(t, IsInvalidURL(err))
	}
	require.Zero(t, up.videosCalls.Load())
	require.Zero(t, up.oembedCalls.Load())
}

func TestResolveErrorDoesNotLeakAPIKey(t *testing.T) {
	resolver := NewResolver(Options{
		APIKey:         "super-secret",
		DataAPIBaseURL: "http://127.0.0.1:1/youtube/v3",
		OEmbedURL:      "http://127.0.0.1:1/embed",
	})

	_, err := resolver.Resolve(context.Background(), "https://youtu.be/abc123")
	require.Error(t, err)
	require.NotContains(t, err.Error(), "super-secret")
}

type stubProvider struct {
	name  string
	info  core.VideoInfo
	err   error
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Fetch(ctx context.Context, rawURL, videoID string) (core.VideoInfo, error) {
	s.calls++
	if s.err != nil {
		return core.VideoInfo{}, s.err
	}
	info := s.info
	info.VideoID = videoID
	return info, nil
}

func TestResolverTriesProvidersInOrder(t *testing.T) {
	first := &stubProvider{name: "first", err: errors.New("first failed")}
	second := &stubProvider{name: "second", info: core.VideoInfo{Title: "second"}}
	third := &stubProvider{name: "third", info: core.VideoInfo{Title: "third"}}

	resolver := &Resolver{Providers: []Provider{first, second, third}}
	info, err := resolver.Resolve(context.Background(), "https://youtu.be/xyz")
	require.NoError(t, err)
	require.Equal(t, "second", info.Title)
	require.Equal(t, "xyz", info.VideoID)
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
	require.Zero(t, third.calls)
}
