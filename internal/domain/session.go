package domain

import (
	"errors"
	"strings"
)

type Platform string

const (
	PlatformNone    Platform = ""
	PlatformPrimary Platform = "youtube"
	PlatformAudio   Platform = "music"
)

// HasModes reports whether the platform asks for a sub-mode (step 2).
func (p Platform) HasModes() bool { return p == PlatformAudio }

func (p Platform) Label() string {
	switch p {
	case PlatformPrimary:
		return "YouTube"
	case PlatformAudio:
		return "YouTube Music"
	default:
		return ""
	}
}

func ParsePlatform(s string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "youtube", "yt", "video":
		return PlatformPrimary, true
	case "music", "ytm", "audio":
		return PlatformAudio, true
	default:
		return PlatformNone, false
	}
}

type Mode string

const (
	ModeNone       Mode = ""
	ModeSingle     Mode = "single"
	ModeCollection Mode = "playlist"
)

func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single", "track":
		return ModeSingle, true
	case "playlist", "collection":
		return ModeCollection, true
	default:
		return ModeNone, false
	}
}

// Session is the wizard's selection record. It is owned and mutated only by
// the wizard engine.
type Session struct {
	Platform   Platform
	Mode       Mode
	SourceURL  string
	Metadata   *Metadata
	Selected   *SelectedQuality
	DownloadID string
}

// Reset clears every field (step 1 entry).
func (s *Session) Reset() {
	*s = Session{}
}

// ClearSource clears the source and everything derived from it while keeping
// platform and mode (step 3 entry).
func (s *Session) ClearSource() {
	s.SourceURL = ""
	s.Metadata = nil
	s.Selected = nil
	s.DownloadID = ""
}

// CollectionFlow reports whether a launch bypasses quality selection.
func (s *Session) CollectionFlow() bool {
	if s.Mode == ModeCollection {
		return true
	}
	return s.Metadata != nil && s.Metadata.IsCollection
}

var (
	errSelectionWithoutMetadata = errors.New("session: quality selected without metadata")
	errDownloadWithoutSelection = errors.New("session: download id without a selected quality or collection flow")
	errModeWithoutPlatform      = errors.New("session: mode set on a platform without modes")
)

// Validate checks the ordering invariant between metadata, selection and
// download id.
func (s *Session) Validate() error {
	if s.Mode != ModeNone && !s.Platform.HasModes() {
		return errModeWithoutPlatform
	}
	if s.Selected != nil && s.Metadata == nil {
		return errSelectionWithoutMetadata
	}
	if s.DownloadID != "" && s.Selected == nil && !s.CollectionFlow() {
		return errDownloadWithoutSelection
	}
	return nil
}
