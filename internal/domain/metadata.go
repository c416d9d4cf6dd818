package domain

import "fmt"

type VideoQuality struct {
	Label  string
	Height int
}

type AudioQuality struct {
	Label   string
	Bitrate int
}

// Metadata describes a remote source: either a single playable item or a
// collection. Quality lists keep the order the backend sent them in; the
// backend lists the best quality first.
type Metadata struct {
	IsCollection bool
	Title        string

	ChannelOrArtist string
	DurationSeconds *int
	ThumbnailURL    string
	VideoQualities  []VideoQuality
	AudioQualities  []AudioQuality

	ItemCount int
}

// DurationLabel renders the duration as m:ss, or "" when unknown.
func (m Metadata) DurationLabel() string {
	if m.DurationSeconds == nil || *m.DurationSeconds <= 0 {
		return ""
	}
	d := *m.DurationSeconds
	return fmt.Sprintf("%d:%02d", d/60, d%60)
}
