package output

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// TableFormatter renders reports as an ASCII table.
type TableFormatter struct{}

// FormatVideo renders a report as a two-column table.
func (f *TableFormatter) FormatVideo(report *VideoReport) (string, error) {
	if report == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Title", report.Title},
		{"Channel", report.ChannelTitle},
		{"Video ID", report.VideoID},
		{"Thumbnail", report.Thumbnail},
		{"Avatar", avatarLabel(report.VideoInfo)},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Open link", report.OpenLink})

	return t.Render(), nil
}
