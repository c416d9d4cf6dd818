// Package stream consumes the server-push progress stream of one download.
//
// A Subscriber opens one stream per download id. Events and faults are
// delivered through a Handler from a transport goroutine; the caller owns
// the returned Subscription and is the only one that closes it.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/config"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

// Handler receives everything a subscription produces. Neither callback is
// invoked after Close returns.
type Handler struct {
	OnEvent func(domain.ProgressEvent)
	OnFault func(error)
}

type Subscription interface {
	// Close stops delivery and releases the connection. Safe to call more
	// than once.
	Close()
}

type Subscriber interface {
	Subscribe(ctx context.Context, downloadID string, h Handler) (Subscription, error)
}

type Options struct {
	BaseURL      string
	ProgressPath string
	Transport    string

	HTTPClient *http.Client
	Dialer     *websocket.Dialer
	Logger     *zap.Logger
}

var ErrEmptyDownloadID = errors.New("stream: empty download id")

// New returns the subscriber for opts.Transport.
func New(opts Options) (Subscriber, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("stream: base url: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(opts.Transport)) {
	case "", config.TransportSSE:
		hc := opts.HTTPClient
		if hc == nil {
			// No client timeout: the stream stays open for the whole download.
			hc = &http.Client{}
		}
		return &sseSubscriber{opts: opts, http: hc, log: opts.Logger.Named("sse")}, nil
	case config.TransportWebSocket, "ws":
		d := opts.Dialer
		if d == nil {
			d = websocket.DefaultDialer
		}
		return &wsSubscriber{opts: opts, dialer: d, log: opts.Logger.Named("websocket")}, nil
	default:
		return nil, fmt.Errorf("stream: unsupported transport %q", opts.Transport)
	}
}

func streamURL(base, progressPath, downloadID string) string {
	return base + progressPath + "/" + url.PathEscape(downloadID)
}

// subscription is the shared lifetime handle used by both transports.
type subscription struct {
	cancel context.CancelFunc
	closed atomic.Bool
	once   sync.Once
	done   chan struct{}

	handler  Handler
	terminal atomic.Bool
}

func newSubscription(cancel context.CancelFunc, h Handler) *subscription {
	return &subscription{cancel: cancel, handler: h, done: make(chan struct{})}
}

func (s *subscription) Close() {
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
	})
}

// Done is closed when the transport goroutine has exited.
func (s *subscription) Done() <-chan struct{} { return s.done }

func (s *subscription) deliver(ev domain.ProgressEvent) {
	if s.closed.Load() || s.terminal.Load() {
		return
	}
	if ev.Status.Terminal() {
		s.terminal.Store(true)
	}
	if s.handler.OnEvent != nil {
		s.handler.OnEvent(ev)
	}
}

// fault reports err unless the subscription was closed or already delivered
// a terminal status, in which case the end of the stream is expected.
func (s *subscription) fault(err error) {
	if s.closed.Load() || s.terminal.Load() {
		return
	}
	if s.handler.OnFault != nil {
		s.handler.OnFault(&domain.StreamFaultError{Err: err})
	}
}

// decodeEvent parses one message payload. ok is false for frames without a
// status, which carry nothing to render.
func decodeEvent(payload []byte) (domain.ProgressEvent, bool, error) {
	var ev domain.ProgressEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return domain.ProgressEvent{}, false, err
	}
	ev.Status = domain.ProgressStatus(strings.ToLower(strings.TrimSpace(string(ev.Status))))
	if ev.Status == "" {
		return domain.ProgressEvent{}, false, nil
	}
	return ev, true, nil
}
