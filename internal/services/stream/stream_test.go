package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type collector struct {
	events chan domain.ProgressEvent
	faults chan error
}

func newCollector() *collector {
	return &collector{events: make(chan domain.ProgressEvent, 32), faults: make(chan error, 4)}
}

func (c *collector) handler() Handler {
	return Handler{
		OnEvent: func(ev domain.ProgressEvent) { c.events <- ev },
		OnFault: func(err error) { c.faults <- err },
	}
}

func (c *collector) next(t *testing.T) domain.ProgressEvent {
	t.Helper()
	select {
	case ev := <-c.events:
		return ev
	case err := <-c.faults:
		t.Fatalf("unexpected fault: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return domain.ProgressEvent{}
}

func sseServer(t *testing.T, frames []string, hold bool) string {
	t.Helper()
	r := gin.New()
	r.GET("/api/progress/:id", func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Status(http.StatusOK)
		for _, f := range frames {
			_, _ = io.WriteString(c.Writer, f)
			c.Writer.Flush()
		}
		if hold {
			<-c.Request.Context().Done()
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func newSSE(t *testing.T, base string) Subscriber {
	t.Helper()
	sub, err := New(Options{BaseURL: base, ProgressPath: "/api/progress", Transport: "sse"})
	require.NoError(t, err)
	return sub
}

func TestSSEDeliversEventsUntilTerminal(t *testing.T) {
	t.Parallel()

	base := sseServer(t, []string{
		"data: {\"status\":\"waiting\",\"percent\":0}\n\n",
		"data: {\"status\":\"downloading\",\"percent\":42.7,\"speed\":2097152}\n\n",
		"data: not json\n\n",
		"data: {\"status\":\"complete\",\"percent\":100,\"message\":\"Download complete!\"}\n\n",
		"data: {\"status\":\"downloading\",\"percent\":5}\n\n",
	}, false)

	c := newCollector()
	s, err := newSSE(t, base).Subscribe(context.Background(), "abc", c.handler())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, domain.StatusWaiting, c.next(t).Status)
	ev := c.next(t)
	assert.Equal(t, domain.StatusDownloading, ev.Status)
	require.NotNil(t, ev.SpeedBytesPerSec)
	assert.InDelta(t, 2097152, *ev.SpeedBytesPerSec, 0.001)
	done := c.next(t)
	assert.Equal(t, domain.StatusComplete, done.Status)
	assert.Equal(t, "Download complete!", done.Message)

	<-s.(*subscription).Done()
	assert.Empty(t, c.events, "events after terminal are dropped")
	assert.Empty(t, c.faults, "end of stream after terminal is not a fault")
}

func TestSSEFaultWithoutTerminal(t *testing.T) {
	t.Parallel()

	base := sseServer(t, []string{"data: {\"status\":\"downloading\",\"percent\":10}\n\n"}, false)
	c := newCollector()
	s, err := newSSE(t, base).Subscribe(context.Background(), "abc", c.handler())
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, domain.StatusDownloading, c.next(t).Status)
	select {
	case err := <-c.faults:
		var sf *domain.StreamFaultError
		assert.True(t, errors.As(err, &sf))
	case <-time.After(3 * time.Second):
		t.Fatal("expected fault")
	}
}

func TestSSEConnectFailureFaults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newCollector()
	s, err := newSSE(t, base).Subscribe(context.Background(), "abc", c.handler())
	require.NoError(t, err)
	defer s.Close()

	select {
	case <-c.faults:
	case <-time.After(3 * time.Second):
		t.Fatal("expected fault")
	}
}

func TestCloseStopsDeliveryAndIsIdempotent(t *testing.T) {
	t.Parallel()

	base := sseServer(t, []string{"data: {\"status\":\"starting\"}\n\n"}, true)
	c := newCollector()
	s, err := newSSE(t, base).Subscribe(context.Background(), "abc", c.handler())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusStarting, c.next(t).Status)
	s.Close()
	s.Close()

	select {
	case <-s.(*subscription).Done():
	case <-time.After(3 * time.Second):
		t.Fatal("transport goroutine did not exit")
	}
	assert.Empty(t, c.faults, "closing is not a fault")
}

func TestWebSocketDeliversEvents(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	r := gin.New()
	r.GET("/api/progress/:id/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i, status := range []string{"starting", "downloading", "processing", "complete"} {
			msg := fmt.Sprintf(`{"status":%q,"percent":%d}`, status, i*30)
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		_, _, _ = conn.ReadMessage()
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	subscriber, err := New(Options{BaseURL: srv.URL, ProgressPath: "/api/progress", Transport: "websocket"})
	require.NoError(t, err)

	c := newCollector()
	s, err := subscriber.Subscribe(context.Background(), "abc", c.handler())
	require.NoError(t, err)

	var got []domain.ProgressStatus
	for i := 0; i < 4; i++ {
		got = append(got, c.next(t).Status)
	}
	assert.Equal(t, []domain.ProgressStatus{
		domain.StatusStarting, domain.StatusDownloading, domain.StatusProcessing, domain.StatusComplete,
	}, got)

	s.Close()
	select {
	case <-s.(*subscription).Done():
	case <-time.After(3 * time.Second):
		t.Fatal("transport goroutine did not exit")
	}
	assert.Empty(t, c.faults)
}

func TestNewRejectsUnknownTransport(t *testing.T) {
	t.Parallel()

	_, err := New(Options{BaseURL: "http://127.0.0.1:1", Transport: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestSubscribeRejectsEmptyID(t *testing.T) {
	t.Parallel()

	_, err := newSSE(t, "http://127.0.0.1:1").Subscribe(context.Background(), "", Handler{})
	assert.ErrorIs(t, err, ErrEmptyDownloadID)
}
