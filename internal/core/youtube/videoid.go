package youtube

import (
	"regexp"
	"strings"
)

// videoIDPatterns are tried in order; the first match wins.
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`youtube\.com/watch\?v=([^&\s]+)`),
	regexp.MustCompile(`youtu\.be/([^?\s]+)`),
	regexp.MustCompile(`youtube\.com/embed/([^?\s]+)`),
	regexp.MustCompile(`youtube\.com/shorts/([^?\s]+)`),
}

var openLinkRE = regexp.MustCompile(`^https?://(www\.)?`)

// ExtractVideoID returns the video identifier from a watch, short-link, embed
// or shorts URL, or "" when the URL has none of those shapes.
func ExtractVideoID(rawURL string) string {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(rawURL); len(m) >= 2 {
			return m[1]
		}
	}
	return ""
}

// ThumbnailURL is the predictable high-resolution thumbnail for a video.
func ThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/maxresdefault.jpg"
}

// OpenLink rewrites a video URL into its "open in app" form,
// e.g. https://www.youtube.com/watch?v=x becomes https://openyoutube.com/watch?v=x.
func OpenLink(rawURL string) string {
	return openLinkRE.ReplaceAllString(strings.TrimSpace(rawURL), "https://open")
}
