package domain

import "time"

type EventType string

const (
	EventStep     EventType = "step"
	EventMetadata EventType = "metadata"
	EventOptions  EventType = "options"
	EventLaunched EventType = "launched"
	EventProgress EventType = "progress"
	EventLog      EventType = "log"
	EventWarning  EventType = "warning"
	EventError    EventType = "error"
)

type Severity string

const (
	SeverityTrace Severity = "trace"
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

type Event struct {
	Type     EventType
	Step     Step
	TS       time.Time
	Source   string
	Severity Severity
	Payload  any
}

// StepPayload accompanies every EventStep. Phase is the snapshot all
// front-ends derive their affordances from.
type StepPayload struct {
	Step     Step
	Phase    Phase
	Platform Platform
	Mode     Mode
	Message  string
}

type MetadataPayload struct {
	URL      string
	Metadata Metadata
}

type OptionsPayload struct {
	Options  []QualityOption
	Selected int
}

type LaunchedPayload struct {
	DownloadID string
	Request    LaunchRequest
}

type ProgressPayload struct {
	View ProgressView
}

type LogPayload struct {
	Message string
	Fields  map[string]string
}
