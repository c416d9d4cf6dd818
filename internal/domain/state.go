package domain

import "time"

// AppState is the front-end's projection of engine events.
type AppState struct {
	Step     Step
	Phase    Phase
	Platform Platform
	Mode     Mode

	SourceURL string
	Metadata  *Metadata
	Options   []QualityOption
	Selected  int

	DownloadID string
	Progress   ProgressView
	Message    string

	Logs LogState

	StartedAt time.Time
}

type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarning LogLevel = "warning"
	LogError   LogLevel = "error"
)

type LogEntry struct {
	TS      time.Time
	Level   LogLevel
	Source  string
	Step    Step
	Message string
	Fields  map[string]string
}

type LogState struct {
	Max     int
	Entries []LogEntry
}

func (l *LogState) Append(e LogEntry) {
	l.Entries = append(l.Entries, e)
	if l.Max > 0 && len(l.Entries) > l.Max {
		l.Entries = l.Entries[len(l.Entries)-l.Max:]
	}
}
