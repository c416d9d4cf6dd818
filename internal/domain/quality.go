package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type QualityKind string

const (
	QualityVideo QualityKind = "video"
	QualityAudio QualityKind = "audio"
)

func (k QualityKind) Label() string {
	if k == QualityVideo {
		return "Video"
	}
	return "Audio"
}

// QualityValue is either the literal "best" or a number (height in pixels for
// video, bitrate in kbps for audio).
type QualityValue struct {
	Best bool
	N    int
}

var BestQuality = QualityValue{Best: true}

func QualityN(n int) QualityValue { return QualityValue{N: n} }

func (v QualityValue) String() string {
	if v.Best {
		return "best"
	}
	return strconv.Itoa(v.N)
}

func (v QualityValue) MarshalJSON() ([]byte, error) {
	if v.Best {
		return json.Marshal("best")
	}
	return json.Marshal(v.N)
}

func (v *QualityValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if strings.EqualFold(strings.TrimSpace(s), "best") {
			*v = BestQuality
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("quality value %q: %w", s, err)
		}
		*v = QualityN(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("quality value %s: %w", string(b), err)
	}
	*v = QualityN(int(f))
	return nil
}

type SelectedQuality struct {
	Kind  QualityKind
	Value QualityValue
}

type QualityOption struct {
	Label string
	Kind  QualityKind
	Value QualityValue
}

func (o QualityOption) Selection() SelectedQuality {
	return SelectedQuality{Kind: o.Kind, Value: o.Value}
}

type DownloadMode string

const (
	DownloadVideoAtQuality DownloadMode = "video_quality"
	DownloadVideoBest      DownloadMode = "video_best"
	DownloadAudioAtQuality DownloadMode = "audio_quality"
	DownloadAudioBest      DownloadMode = "audio_best"
	DownloadCollectionBulk DownloadMode = "playlist"
)

// DeriveDownloadMode maps a selection to the backend mode tag. Collection
// flow wins over any selection left in the session.
func DeriveDownloadMode(sel *SelectedQuality, collection bool) (DownloadMode, bool) {
	if collection {
		return DownloadCollectionBulk, true
	}
	if sel == nil {
		return "", false
	}
	switch sel.Kind {
	case QualityVideo:
		if sel.Value.Best {
			return DownloadVideoBest, true
		}
		return DownloadVideoAtQuality, true
	case QualityAudio:
		if sel.Value.Best {
			return DownloadAudioBest, true
		}
		return DownloadAudioAtQuality, true
	default:
		return "", false
	}
}

// LaunchRequest is what the launcher sends to the backend. Quality is nil for
// collection downloads.
type LaunchRequest struct {
	URL     string
	Mode    DownloadMode
	Quality *QualityValue
}
