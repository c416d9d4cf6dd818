package wizard

import (
	"strings"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

// BuildLaunchRequest derives the download request from the session. The
// collection flow ignores any selection left in the session.
func BuildLaunchRequest(s *domain.Session) (domain.LaunchRequest, error) {
	url := strings.TrimSpace(s.SourceURL)
	if url == "" {
		return domain.LaunchRequest{}, domain.ErrEmptyURL
	}
	collection := s.CollectionFlow()
	mode, ok := domain.DeriveDownloadMode(s.Selected, collection)
	if !ok {
		return domain.LaunchRequest{}, domain.ErrNoQuality
	}
	req := domain.LaunchRequest{URL: url, Mode: mode}
	if !collection {
		v := s.Selected.Value
		req.Quality = &v
	}
	return req, nil
}
