package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders reports as a markdown table.
type MarkdownFormatter struct{}

// FormatVideo renders a report as Markdown.
func (f *MarkdownFormatter) FormatVideo(report *VideoReport) (string, error) {
	if report == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(report.Title)))
	sb.WriteString("| Field | Value |\n")
	sb.WriteString("|-------|-------|\n")
	rows := [][2]string{
		{"Channel", report.ChannelTitle},
		{"Video ID", report.VideoID},
		{"Thumbnail", report.Thumbnail},
		{"Avatar", avatarLabel(report.VideoInfo)},
	}
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", row[0], escapeMarkdownCell(row[1])))
	}
	if report.OpenLink != "" {
		sb.WriteString(fmt.Sprintf("\n[Open in app](%s)\n", report.OpenLink))
	}
	return sb.String(), nil
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
