package backend

import (
	"math"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

type infoRequest struct {
	URL string `json:"url"`
}

type videoQualityJSON struct {
	Label    string `json:"label"`
	Height   int    `json:"height"`
	FormatID string `json:"format_id,omitempty"`
}

type audioQualityJSON struct {
	Label    string `json:"label"`
	ABR      int    `json:"abr"`
	FormatID string `json:"format_id,omitempty"`
}

// infoResponse is the union of the success and failure bodies of the
// metadata endpoint.
type infoResponse struct {
	Error *string `json:"error,omitempty"`

	IsPlaylist *bool  `json:"is_playlist,omitempty"`
	Title      string `json:"title,omitempty"`

	Channel        string             `json:"channel,omitempty"`
	Duration       *float64           `json:"duration,omitempty"`
	Thumbnail      string             `json:"thumbnail,omitempty"`
	VideoQualities []videoQualityJSON `json:"video_qualities,omitempty"`
	AudioQualities []audioQualityJSON `json:"audio_qualities,omitempty"`

	Count *int `json:"count,omitempty"`
}

func (r infoResponse) metadata() domain.Metadata {
	if r.IsPlaylist != nil && *r.IsPlaylist {
		count := 0
		if r.Count != nil && *r.Count > 0 {
			count = *r.Count
		}
		return domain.Metadata{
			IsCollection: true,
			Title:        r.Title,
			ItemCount:    count,
			ThumbnailURL: r.Thumbnail,
		}
	}

	m := domain.Metadata{
		Title:           r.Title,
		ChannelOrArtist: r.Channel,
		ThumbnailURL:    r.Thumbnail,
	}
	if r.Duration != nil && !math.IsNaN(*r.Duration) && *r.Duration > 0 {
		d := int(*r.Duration)
		m.DurationSeconds = &d
	}
	m.VideoQualities = make([]domain.VideoQuality, 0, len(r.VideoQualities))
	for _, q := range r.VideoQualities {
		m.VideoQualities = append(m.VideoQualities, domain.VideoQuality{Label: q.Label, Height: q.Height})
	}
	m.AudioQualities = make([]domain.AudioQuality, 0, len(r.AudioQualities))
	for _, q := range r.AudioQualities {
		m.AudioQualities = append(m.AudioQualities, domain.AudioQuality{Label: q.Label, Bitrate: q.ABR})
	}
	return m
}

type downloadRequest struct {
	URL     string               `json:"url"`
	Mode    domain.DownloadMode  `json:"mode"`
	Quality *domain.QualityValue `json:"quality"`
}

type downloadResponse struct {
	Error      *string `json:"error,omitempty"`
	DownloadID string  `json:"download_id,omitempty"`
}
