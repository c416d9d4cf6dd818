package stream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/logging"
)

type wsSubscriber struct {
	opts   Options
	dialer *websocket.Dialer
	log    *zap.Logger
}

func (s *wsSubscriber) endpoint(downloadID string) (string, error) {
	raw := streamURL(s.opts.BaseURL, s.opts.ProgressPath, downloadID) + "/ws"
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	return u.String(), nil
}

func (s *wsSubscriber) Subscribe(ctx context.Context, downloadID string, h Handler) (Subscription, error) {
	if downloadID == "" {
		return nil, ErrEmptyDownloadID
	}
	endpoint, err := s.endpoint(downloadID)
	if err != nil {
		return nil, fmt.Errorf("stream: websocket url: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel, h)
	log := s.log.With(zap.String(logging.FieldDownloadID, downloadID))
	go s.run(ctx, endpoint, sub, log)
	return sub, nil
}

func (s *wsSubscriber) run(ctx context.Context, endpoint string, sub *subscription, log *zap.Logger) {
	defer close(sub.done)

	conn, resp, err := s.dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		log.Debug("dial failed", zap.Error(err))
		sub.fault(err)
		return
	}
	defer conn.Close()

	// ReadMessage does not observe ctx; closing the conn unblocks it.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadlineSoon())
		_ = conn.Close()
	})
	defer stop()
	log.Debug("stream opened")

	for {
		kind, payload, err := conn.ReadMessage()
		if err != nil {
			log.Debug("stream ended", zap.Error(err))
			sub.fault(err)
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		ev, ok, err := decodeEvent(payload)
		if err != nil {
			log.Warn("malformed progress payload", zap.Error(err), zap.Int("bytes", len(payload)))
			continue
		}
		if ok {
			sub.deliver(ev)
		}
	}
}

func deadlineSoon() time.Time { return time.Now().Add(time.Second) }
