package output

import (
	"fmt"
	"strings"

	"github.com/storycard/storycard/internal/core"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// VideoReport is resolved metadata plus the links shown to the user.
type VideoReport struct {
	core.VideoInfo `yaml:",inline"`
	URL            string `json:"url" yaml:"url"`
	OpenLink       string `json:"openLink" yaml:"openLink"`
}

// Formatter renders video reports.
type Formatter interface {
	FormatVideo(report *VideoReport) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatYAML:
		return &YAMLFormatter{}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	default:
		return &TableFormatter{}
	}
}

func avatarLabel(info core.VideoInfo) string {
	if !info.HasAvatar() {
		return "(none)"
	}
	return info.AvatarURL()
}
