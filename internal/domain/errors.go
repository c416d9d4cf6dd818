package domain

import (
	"errors"
	"fmt"
)

// ErrUnreachable covers transport failures and unparsable responses. The
// cause is logged but never shown to the user.
var ErrUnreachable = errors.New("backend unreachable")

var (
	ErrEmptyURL  = errors.New("empty source url")
	ErrNoQuality = errors.New("no quality selected")
	ErrBusy      = errors.New("request already in flight")
)

// RemoteRejectedError is a refusal authored by the backend. Message is safe to
// show verbatim.
type RemoteRejectedError struct {
	Message string
}

func (e *RemoteRejectedError) Error() string {
	return "backend rejected request: " + e.Message
}

// StreamFaultError is a progress stream failure without a terminal status.
type StreamFaultError struct {
	Err error
}

func (e *StreamFaultError) Error() string {
	if e.Err == nil {
		return "progress stream fault"
	}
	return fmt.Sprintf("progress stream fault: %v", e.Err)
}

func (e *StreamFaultError) Unwrap() error { return e.Err }

const (
	MessageFetchFailed  = "Failed to fetch video info. Please check the URL."
	MessageLaunchFailed = "Failed to start download"
	MessageStreamLost   = "Lost connection to the progress stream."
)

// UserMessage returns the text a user may see for err: the server's message
// when the backend refused, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var rr *RemoteRejectedError
	if errors.As(err, &rr) && rr.Message != "" {
		return rr.Message
	}
	return fallback
}
