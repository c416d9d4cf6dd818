package domain

type ProgressStatus string

const (
	StatusStarting    ProgressStatus = "starting"
	StatusWaiting     ProgressStatus = "waiting"
	StatusDownloading ProgressStatus = "downloading"
	StatusProcessing  ProgressStatus = "processing"
	StatusComplete    ProgressStatus = "complete"
	StatusError       ProgressStatus = "error"
)

// Terminal reports whether the status ends a subscription.
func (s ProgressStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

func (s ProgressStatus) Known() bool {
	switch s {
	case StatusStarting, StatusWaiting, StatusDownloading, StatusProcessing, StatusComplete, StatusError:
		return true
	default:
		return false
	}
}

// ProgressEvent is one message pushed on a progress stream. Optional fields
// are nil when the server omitted them.
type ProgressEvent struct {
	Status           ProgressStatus `json:"status"`
	Percent          *float64       `json:"percent,omitempty"`
	SpeedBytesPerSec *float64       `json:"speed,omitempty"`
	ETASeconds       *float64       `json:"eta,omitempty"`
	Message          string         `json:"message,omitempty"`
}

// ProgressView is the rendered state of the progress step.
type ProgressView struct {
	Status       ProgressStatus
	Percent      float64
	PercentLabel string
	Title        string
	Caption      string
	Speed        string
	ETA          string
	Message      string
}
