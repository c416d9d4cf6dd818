package wizard

import (
	"fmt"
	"math"
	"strings"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

type Outcome int

const (
	// OutcomeIgnored means the event changed nothing.
	OutcomeIgnored Outcome = iota
	OutcomeContinue
	OutcomeComplete
	OutcomeFailed
)

const (
	titleStarting    = "Starting..."
	titleDownloading = "Downloading..."
	titleProcessing  = "Processing..."
	titleComplete    = "Download complete!"
	titleFailed      = "Download failed"

	captionStarting    = "Preparing download..."
	captionProcessing  = "Converting and processing file..."
	captionDownloading = "Downloading..."

	messageDownloadFailed = "Download failed"
)

// Monitor maps progress events of one download to a view. After the first
// terminal event it drops everything.
type Monitor struct {
	view domain.ProgressView
	done bool
}

func NewMonitor() *Monitor {
	return &Monitor{view: domain.ProgressView{
		Status:       domain.StatusStarting,
		PercentLabel: percentLabel(0),
		Title:        titleStarting,
		Caption:      captionStarting,
	}}
}

func (m *Monitor) View() domain.ProgressView { return m.view }

func (m *Monitor) Done() bool { return m.done }

func (m *Monitor) Apply(ev domain.ProgressEvent) (domain.ProgressView, Outcome) {
	if m.done || !ev.Status.Known() {
		return m.view, OutcomeIgnored
	}

	v := m.view
	v.Status = ev.Status
	if ev.Percent != nil && !math.IsNaN(*ev.Percent) {
		v.Percent = clampPercent(*ev.Percent)
	}
	v.Speed = ""
	v.ETA = ""
	v.Message = strings.TrimSpace(ev.Message)

	outcome := OutcomeContinue
	switch ev.Status {
	case domain.StatusStarting, domain.StatusWaiting:
		v.Title = titleStarting
		v.Caption = captionStarting
	case domain.StatusDownloading:
		v.Title = titleDownloading
		v.Caption = captionDownloading
		if ev.SpeedBytesPerSec != nil && *ev.SpeedBytesPerSec > 0 {
			v.Speed = FormatSpeed(*ev.SpeedBytesPerSec)
			v.Caption = "Downloading at " + v.Speed + "..."
		}
		if ev.ETASeconds != nil && *ev.ETASeconds > 0 {
			v.ETA = formatETA(*ev.ETASeconds)
		}
	case domain.StatusProcessing:
		v.Title = titleProcessing
		v.Caption = captionProcessing
	case domain.StatusComplete:
		if ev.Percent == nil {
			v.Percent = 100
		}
		v.Title = titleComplete
		v.Caption = v.Message
		if v.Caption == "" {
			v.Caption = titleComplete
		}
		outcome = OutcomeComplete
	case domain.StatusError:
		v.Title = titleFailed
		if v.Message == "" {
			v.Message = messageDownloadFailed
		}
		v.Caption = v.Message
		outcome = OutcomeFailed
	}
	v.PercentLabel = percentLabel(v.Percent)

	m.view = v
	if ev.Status.Terminal() {
		m.done = true
	}
	return v, outcome
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// percentLabel floors: 42.7 renders as 42%.
func percentLabel(p float64) string {
	return fmt.Sprintf("%d%%", int(math.Floor(clampPercent(p))))
}

// FormatSpeed renders bytes per second as MB/s with two decimals.
func FormatSpeed(bytesPerSec float64) string {
	return fmt.Sprintf("%.2f MB/s", bytesPerSec/1024/1024)
}

func formatETA(seconds float64) string {
	s := int(seconds)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
