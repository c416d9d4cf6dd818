package ui

import (
	"time"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

const maxLogEntries = 1000

func newAppState(now time.Time) domain.AppState {
	return domain.AppState{
		StartedAt: now,
		Logs:      domain.LogState{Max: maxLogEntries},
	}
}

// applyEvent folds one engine event into the front-end copy of the wizard
// state. It reports whether the step changed.
func applyEvent(s *domain.AppState, ev domain.Event) bool {
	switch ev.Type {
	case domain.EventStep:
		p, ok := ev.Payload.(domain.StepPayload)
		if !ok {
			return false
		}
		prev := s.Step
		s.Step = p.Step
		s.Phase = p.Phase
		s.Platform = p.Platform
		s.Mode = p.Mode
		s.Message = p.Message

		changed := prev != p.Step
		if changed {
			switch p.Step {
			case domain.StepPlatformSelect, domain.StepModeSelect, domain.StepURLAndQuality:
				clearSource(s)
			case domain.StepProgress:
				s.Progress = domain.ProgressView{}
				s.DownloadID = ""
			}
		}
		if p.Phase.Kind == domain.PhaseFetching {
			clearSource(s)
		}
		return changed

	case domain.EventMetadata:
		if p, ok := ev.Payload.(domain.MetadataPayload); ok {
			meta := p.Metadata
			s.SourceURL = p.URL
			s.Metadata = &meta
		}
	case domain.EventOptions:
		if p, ok := ev.Payload.(domain.OptionsPayload); ok {
			s.Options = append([]domain.QualityOption(nil), p.Options...)
			s.Selected = p.Selected
		}
	case domain.EventLaunched:
		if p, ok := ev.Payload.(domain.LaunchedPayload); ok {
			s.DownloadID = p.DownloadID
			s.Logs.Append(domain.LogEntry{
				TS:      ev.TS,
				Level:   domain.LogInfo,
				Source:  ev.Source,
				Step:    ev.Step,
				Message: "Download started (" + string(p.Request.Mode) + ").",
				Fields:  map[string]string{"download_id": p.DownloadID},
			})
		}
	case domain.EventProgress:
		p, ok := ev.Payload.(domain.ProgressPayload)
		if !ok {
			return false
		}
		prevStatus := s.Progress.Status
		s.Progress = p.View
		if p.View.Status != prevStatus && p.View.Title != "" {
			s.Logs.Append(domain.LogEntry{
				TS:      ev.TS,
				Level:   domain.LogInfo,
				Source:  ev.Source,
				Step:    ev.Step,
				Message: p.View.Title,
				Fields:  map[string]string{"status": string(p.View.Status)},
			})
		}
	case domain.EventLog:
		appendLog(s, ev, domain.LogInfo)
	case domain.EventWarning:
		appendLog(s, ev, domain.LogWarning)
	case domain.EventError:
		appendLog(s, ev, domain.LogError)
	}
	return false
}

func clearSource(s *domain.AppState) {
	s.SourceURL = ""
	s.Metadata = nil
	s.Options = nil
	s.Selected = 0
	s.DownloadID = ""
	s.Progress = domain.ProgressView{}
}

func appendLog(s *domain.AppState, ev domain.Event, level domain.LogLevel) {
	p, ok := ev.Payload.(domain.LogPayload)
	if !ok || p.Message == "" {
		return
	}
	s.Logs.Append(domain.LogEntry{
		TS:      ev.TS,
		Level:   level,
		Source:  ev.Source,
		Step:    ev.Step,
		Message: p.Message,
		Fields:  p.Fields,
	})
}
