package core

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultMessage is shown above the thumbnail when no message is supplied.
	DefaultMessage = "New video on the channel!"

	// DefaultAccentColor is the first palette entry.
	DefaultAccentColor = "#e53e3e"
)

// AccentColor is a named palette entry.
type AccentColor struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AccentPalette lists the preset accent colors offered to users.
var AccentPalette = []AccentColor{
	{Name: "Red", Value: "#e53e3e"},
	{Name: "Blue", Value: "#3b82f6"},
	{Name: "Green", Value: "#10b981"},
	{Name: "Purple", Value: "#8b5cf6"},
	{Name: "Orange", Value: "#f59e0b"},
	{Name: "Pink", Value: "#ec4899"},
	{Name: "White", Value: "#ffffff"},
}

var hexColorRE = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// StoryConfig is the presentation state for a single story card.
type StoryConfig struct {
	VideoInfo      *VideoInfo `json:"videoInfo"`
	CustomMessage  string     `json:"customMessage"`
	AccentColor    string     `json:"accentColor"`
	ShowAccentLine bool       `json:"showAccentLine"`
}

// NewStoryConfig returns a config with the default message, color and accent line.
func NewStoryConfig(info *VideoInfo) StoryConfig {
	return StoryConfig{
		VideoInfo:      info,
		CustomMessage:  DefaultMessage,
		AccentColor:    DefaultAccentColor,
		ShowAccentLine: true,
	}
}

// Message returns the custom message, or the default when blank.
func (c StoryConfig) Message() string {
	if msg := strings.TrimSpace(c.CustomMessage); msg != "" {
		return msg
	}
	return DefaultMessage
}

// Validate checks the accent color.
func (c StoryConfig) Validate() error {
	if !ValidAccentColor(c.AccentColor) {
		return fmt.Errorf("invalid accent color %q: expected #rgb or #rrggbb", c.AccentColor)
	}
	return nil
}

// ValidAccentColor reports whether value is a #rgb or #rrggbb hex color.
func ValidAccentColor(value string) bool {
	return hexColorRE.MatchString(strings.TrimSpace(value))
}
