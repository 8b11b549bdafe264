package core

import "strings"

// VideoInfo is the canonical metadata for a single video.
type VideoInfo struct {
	Title         string  `json:"title" yaml:"title"`
	ChannelTitle  string  `json:"channelTitle" yaml:"channelTitle"`
	Thumbnail     string  `json:"thumbnail" yaml:"thumbnail"`
	ChannelAvatar *string `json:"channelAvatar" yaml:"channelAvatar"`
	VideoID       string  `json:"videoId" yaml:"videoId"`
}

// HasAvatar reports whether a channel avatar URL is known.
func (v VideoInfo) HasAvatar() bool {
	return v.ChannelAvatar != nil && strings.TrimSpace(*v.ChannelAvatar) != ""
}

// AvatarURL returns the avatar URL or "" when absent.
func (v VideoInfo) AvatarURL() string {
	if v.ChannelAvatar == nil {
		return ""
	}
	return *v.ChannelAvatar
}

// StringPtr returns a pointer to s, or nil when s is blank.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
