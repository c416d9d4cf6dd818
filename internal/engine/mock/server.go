// Package mock serves a scripted download backend with the same endpoints,
// payloads and stream cadence as the real service. It backs
// `ytw mock-server` and the end-to-end tests.
package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/logging"
)

// Failure knobs.
const (
	FailNone     = ""
	FailInfo     = "info"
	FailDownload = "download"
	FailStream   = "stream"
	FailDrop     = "drop"
)

const (
	msgNoURL         = "No URL provided"
	msgInfoFailed    = "Could not fetch video info"
	msgUnsupported   = "Unsupported URL"
	msgStreamFailed  = "ERROR: [mock] Video unavailable"
	msgProcessing    = "Processing file..."
	msgComplete      = "Download complete!"
	defaultTick      = 500 * time.Millisecond
	defaultTotalSize = 48 << 20
)

type Options struct {
	InfoPath     string
	DownloadPath string
	ProgressPath string
	Tick         time.Duration
	Fail         string
	Logger       *zap.Logger
}

// Server keeps every launched download in memory for its lifetime.
type Server struct {
	opt      Options
	log      *zap.Logger
	router   *gin.Engine
	upgrader websocket.Upgrader

	mu        sync.Mutex
	downloads map[string]*download
}

type download struct {
	url     string
	mode    string
	quality json.RawMessage
	script  []domain.ProgressEvent
	pos     int
}

func New(opt Options) *Server {
	if opt.Tick <= 0 {
		opt.Tick = defaultTick
	}
	if opt.InfoPath == "" {
		opt.InfoPath = "/api/info"
	}
	if opt.DownloadPath == "" {
		opt.DownloadPath = "/api/download"
	}
	if opt.ProgressPath == "" {
		opt.ProgressPath = "/api/progress"
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	s := &Server{
		opt:       opt,
		log:       opt.Logger.Named("mock"),
		downloads: map[string]*download{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.POST(opt.InfoPath, s.handleInfo)
	r.POST(opt.DownloadPath, s.handleDownload)
	r.GET(opt.ProgressPath+"/:id", s.handleProgressSSE)
	r.GET(opt.ProgressPath+"/:id/ws", s.handleProgressWS)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is done. ready, when non-nil,
// receives the bound address once the listener is open.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	if ready != nil {
		ready(ln.Addr())
	}
	s.log.Info("mock backend listening", zap.String("addr", ln.Addr().String()), zap.String("fail", s.opt.Fail))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String(logging.FieldRequestID, c.GetHeader("X-Request-ID")),
			zap.Duration("elapsed", time.Since(started)))
	}
}

type infoRequest struct {
	URL string `json:"url"`
}

type downloadRequest struct {
	URL     string          `json:"url"`
	Mode    string          `json:"mode"`
	Quality json.RawMessage `json:"quality"`
}

func (s *Server) handleInfo(c *gin.Context) {
	var req infoRequest
	_ = c.ShouldBindJSON(&req)
	url := strings.TrimSpace(req.URL)
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoURL})
		return
	}
	if s.opt.Fail == FailInfo {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgInfoFailed})
		return
	}
	if isPlaylistURL(url) {
		c.JSON(http.StatusOK, gin.H{
			"title":       "Mock Playlist",
			"is_playlist": true,
			"count":       12,
			"thumbnail":   "https://i.ytimg.com/vi/mock/hqdefault.jpg",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":       "Mock Video",
		"thumbnail":   "https://i.ytimg.com/vi/mock/maxresdefault.jpg",
		"duration":    213,
		"channel":     "Mock Channel",
		"is_playlist": false,
		"video_qualities": []gin.H{
			{"height": 1080, "label": "1080p", "format_id": "137"},
			{"height": 720, "label": "720p", "format_id": "136"},
			{"height": 480, "label": "480p", "format_id": "135"},
			{"height": 360, "label": "360p", "format_id": "134"},
		},
		"audio_qualities": []gin.H{
			{"abr": 160, "label": "160 kbps", "format_id": "251"},
			{"abr": 128, "label": "128 kbps", "format_id": "140"},
			{"abr": 70, "label": "70 kbps", "format_id": "250"},
		},
	})
}

func isPlaylistURL(url string) bool {
	lower := strings.ToLower(url)
	return strings.Contains(lower, "list=") || strings.Contains(lower, "/playlist")
}

func (s *Server) handleDownload(c *gin.Context) {
	var req downloadRequest
	_ = c.ShouldBindJSON(&req)
	if strings.TrimSpace(req.URL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgNoURL})
		return
	}
	if s.opt.Fail == FailDownload {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgUnsupported})
		return
	}
	if req.Mode == "" {
		req.Mode = string(domain.DownloadVideoBest)
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.downloads[id] = &download{
		url:     req.URL,
		mode:    req.Mode,
		quality: req.Quality,
		script:  buildScript(s.opt.Fail),
	}
	s.mu.Unlock()

	s.log.Info("download started",
		zap.String(logging.FieldDownloadID, id),
		zap.String("mode", req.Mode),
		zap.ByteString("quality", req.Quality))
	c.JSON(http.StatusOK, gin.H{"download_id": id})
}

// buildScript returns the events one download goes through. FailDrop ends
// without a terminal event; the stream is closed after the last one.
func buildScript(fail string) []domain.ProgressEvent {
	f := func(v float64) *float64 { return &v }
	script := []domain.ProgressEvent{{Status: domain.StatusStarting, Percent: f(0)}}
	const steps = 8
	for i := 1; i <= steps; i++ {
		pct := float64(i) * 100 / steps
		if fail == FailStream && i == steps/2 {
			return append(script, domain.ProgressEvent{Status: domain.StatusError, Message: msgStreamFailed})
		}
		if fail == FailDrop && i == steps/2 {
			return script
		}
		remaining := float64(defaultTotalSize) * (100 - pct) / 100
		speed := float64(2<<20) + float64(i)*131072
		script = append(script, domain.ProgressEvent{
			Status:           domain.StatusDownloading,
			Percent:          f(pct - 0.3),
			SpeedBytesPerSec: f(speed),
			ETASeconds:       f(remaining / speed),
		})
	}
	return append(script,
		domain.ProgressEvent{Status: domain.StatusProcessing, Percent: f(100), Message: msgProcessing},
		domain.ProgressEvent{Status: domain.StatusComplete, Percent: f(100), Message: msgComplete},
	)
}

// next returns the event to send for id and whether the stream should end
// after it. Unknown ids get a waiting frame.
func (s *Server) next(id string) (domain.ProgressEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.downloads[id]
	if !ok {
		zero := 0.0
		return domain.ProgressEvent{Status: domain.StatusWaiting, Percent: &zero}, false
	}
	if d.pos >= len(d.script) {
		return domain.ProgressEvent{}, true
	}
	ev := d.script[d.pos]
	d.pos++
	end := ev.Status.Terminal() || d.pos >= len(d.script)
	return ev, end
}

func (s *Server) sleep(ctx context.Context) bool {
	t := time.NewTimer(s.opt.Tick)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *Server) handleProgressSSE(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	first := true
	c.Stream(func(w io.Writer) bool {
		if !first && !s.sleep(ctx) {
			return false
		}
		first = false
		ev, end := s.next(id)
		if ev.Status != "" {
			c.SSEvent("", ev)
		}
		return !end
	})
}

func (s *Server) handleProgressWS(c *gin.Context) {
	id := c.Param("id")
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go func() {
		// Reads only to notice the client going away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for first := true; ; first = false {
		if !first && !s.sleep(ctx) {
			return
		}
		ev, end := s.next(id)
		if ev.Status != "" {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
		if end {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			return
		}
	}
}
