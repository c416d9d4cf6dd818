package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-contrib/sse"
	"go.uber.org/zap"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/logging"
)

const maxFrameBytes = 1 << 20

type sseSubscriber struct {
	opts Options
	http *http.Client
	log  *zap.Logger
}

func (s *sseSubscriber) Subscribe(ctx context.Context, downloadID string, h Handler) (Subscription, error) {
	if downloadID == "" {
		return nil, ErrEmptyDownloadID
	}
	ctx, cancel := context.WithCancel(ctx)
	endpoint := streamURL(s.opts.BaseURL, s.opts.ProgressPath, downloadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stream: build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	sub := newSubscription(cancel, h)
	log := s.log.With(zap.String(logging.FieldDownloadID, downloadID))
	go s.run(req, sub, log)
	return sub, nil
}

func (s *sseSubscriber) run(req *http.Request, sub *subscription, log *zap.Logger) {
	defer close(sub.done)

	resp, err := s.http.Do(req)
	if err != nil {
		log.Debug("connect failed", zap.Error(err))
		sub.fault(err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Warn("unexpected stream status", zap.Int("status", resp.StatusCode))
		sub.fault(fmt.Errorf("stream status %s", resp.Status))
		return
	}
	log.Debug("stream opened")

	reader := bufio.NewReader(resp.Body)
	for {
		frame, err := readFrame(reader)
		if len(frame) > 0 {
			s.dispatch(frame, sub, log)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			log.Debug("stream ended", zap.Error(err))
			sub.fault(err)
			return
		}
	}
}

func (s *sseSubscriber) dispatch(frame []byte, sub *subscription, log *zap.Logger) {
	events, err := sse.Decode(bytes.NewReader(frame))
	if err != nil {
		log.Warn("undecodable frame", zap.Error(err))
		return
	}
	for _, e := range events {
		data, ok := e.Data.(string)
		if !ok || data == "" {
			continue
		}
		ev, ok, err := decodeEvent([]byte(data))
		if err != nil {
			log.Warn("malformed progress payload", zap.Error(err), zap.Int("bytes", len(data)))
			continue
		}
		if ok {
			sub.deliver(ev)
		}
	}
}

// readFrame returns the lines of one event, up to and including the blank
// line that ends it.
func readFrame(r *bufio.Reader) ([]byte, error) {
	var frame []byte
	for {
		line, err := r.ReadBytes('\n')
		frame = append(frame, line...)
		if len(frame) > maxFrameBytes {
			return nil, errors.New("stream frame too large")
		}
		if err != nil {
			return frame, err
		}
		if len(bytes.TrimRight(line, "\r\n")) == 0 && len(bytes.TrimSpace(frame)) > 0 {
			return frame, nil
		}
	}
}
