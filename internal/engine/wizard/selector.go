package wizard

import (
	"fmt"
	"strings"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

// BestAudioLabel labels the synthetic option appended for the video platform.
const BestAudioLabel = "Best Audio (MP3)"

// BuildOptions turns metadata into the ordered option list. Server order is
// kept: the backend lists the best quality first and that entry becomes the
// default. Collections have no options.
func BuildOptions(meta domain.Metadata, platform domain.Platform) []domain.QualityOption {
	if meta.IsCollection {
		return nil
	}
	if platform == domain.PlatformPrimary {
		opts := make([]domain.QualityOption, 0, len(meta.VideoQualities)+1)
		for _, q := range meta.VideoQualities {
			opts = append(opts, domain.QualityOption{
				Label: labelOr(q.Label, fmt.Sprintf("%dp", q.Height)),
				Kind:  domain.QualityVideo,
				Value: domain.QualityN(q.Height),
			})
		}
		return append(opts, domain.QualityOption{
			Label: BestAudioLabel,
			Kind:  domain.QualityAudio,
			Value: domain.BestQuality,
		})
	}

	opts := make([]domain.QualityOption, 0, len(meta.AudioQualities))
	for _, q := range meta.AudioQualities {
		opts = append(opts, domain.QualityOption{
			Label: labelOr(q.Label, fmt.Sprintf("%dkbps", q.Bitrate)),
			Kind:  domain.QualityAudio,
			Value: domain.QualityN(q.Bitrate),
		})
	}
	return opts
}

func labelOr(label, fallback string) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	return fallback
}

// Selector is a single-select list: nothing is selected while empty, exactly
// one option afterwards.
type Selector struct {
	options  []domain.QualityOption
	selected int
}

func NewSelector(options []domain.QualityOption) *Selector {
	s := &Selector{selected: -1}
	s.Load(options)
	return s
}

// Load replaces the option list and selects the first entry.
func (s *Selector) Load(options []domain.QualityOption) {
	s.options = options
	s.selected = -1
	if len(options) > 0 {
		s.selected = 0
	}
}

func (s *Selector) Reset() { s.Load(nil) }

func (s *Selector) Options() []domain.QualityOption { return s.options }

func (s *Selector) Index() int { return s.selected }

func (s *Selector) Selected() (domain.QualityOption, bool) {
	if s.selected < 0 || s.selected >= len(s.options) {
		return domain.QualityOption{}, false
	}
	return s.options[s.selected], true
}

// Select marks option i, clearing the previous selection. Out-of-range
// indexes leave the selection unchanged.
func (s *Selector) Select(i int) bool {
	if i < 0 || i >= len(s.options) {
		return false
	}
	s.selected = i
	return true
}
