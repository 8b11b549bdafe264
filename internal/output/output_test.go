package output

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/storycard/storycard/internal/core"
)

func sampleReport(avatar *string) *VideoReport {
	return &VideoReport{
		VideoInfo: core.VideoInfo{
			Title:         "Go | in practice",
			ChannelTitle:  "gopher",
			Thumbnail:     "https://i.ytimg.com/vi/abc123/maxresdefault.jpg",
			ChannelAvatar: avatar,
			VideoID:       "abc123",
		},
		URL:      "https://youtu.be/abc123",
		OpenLink: "https://openyoutube.com/watch?v=abc123",
	}
}

func TestParseFormat(t *testing.T) {
	format, err := ParseFormat("table")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	format, err = ParseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, FormatJSON, format)

	format, err = ParseFormat("yml")
	require.NoError(t, err)
	require.Equal(t, FormatYAML, format)

	format, err = ParseFormat("")
	require.NoError(t, err)
	require.Equal(t, FormatTable, format)

	_, err = ParseFormat("csv")
	require.Error(t, err)
}

func TestJSONFormatterFlattensVideoInfo(t *testing.T) {
	rendered, err := NewFormatter(FormatJSON).FormatVideo(sampleReport(nil))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "abc123", decoded["videoId"])
	require.Equal(t, "https://openyoutube.com/watch?v=abc123", decoded["openLink"])
	require.Contains(t, decoded, "channelAvatar")
	require.Nil(t, decoded["channelAvatar"])
}

func TestYAMLFormatterInlinesVideoInfo(t *testing.T) {
	rendered, err := NewFormatter(FormatYAML).FormatVideo(sampleReport(core.StringPtr("https://yt3.ggpht.com/a.jpg")))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(rendered), &decoded))
	require.Equal(t, "gopher", decoded["channelTitle"])
	require.Equal(t, "https://yt3.ggpht.com/a.jpg", decoded["channelAvatar"])
}

func TestFormatters(t *testing.T) {
	report := sampleReport(nil)

	table, err := NewFormatter(FormatTable).FormatVideo(report)
	require.NoError(t, err)
	require.Contains(t, table, "abc123")
	require.Contains(t, table, "(none)")
	require.Contains(t, table, "Open link")

	md, err := NewFormatter(FormatMarkdown).FormatVideo(report)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(md, "## Go \\| in practice"))
	require.Contains(t, md, "[Open in app](https://openyoutube.com/watch?v=abc123)")

	for _, format := range []Format{FormatTable, FormatJSON, FormatYAML, FormatMarkdown} {
		out, err := NewFormatter(format).FormatVideo(nil)
		require.NoError(t, err)
		require.Empty(t, out)
	}
}
