package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
)

const maxResponseBytes = 4 << 20

type Options struct {
	BaseURL      string
	InfoPath     string
	DownloadPath string
	Timeout      time.Duration

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the two request/response endpoints of the download
// service. It holds no per-session state.
type Client struct {
	opt  Options
	http *http.Client
	log  *zap.Logger
}

func New(opt Options) *Client {
	hc := opt.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opt.Timeout}
	}
	log := opt.Logger
	if log == nil {
		log = zap.NewNop()
	}
	opt.BaseURL = strings.TrimRight(opt.BaseURL, "/")
	return &Client{opt: opt, http: hc, log: log.Named("backend")}
}

// FetchMetadata resolves a source URL into a metadata record.
func (c *Client) FetchMetadata(ctx context.Context, sourceURL string) (domain.Metadata, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return domain.Metadata{}, domain.ErrEmptyURL
	}

	var resp infoResponse
	if err := c.postJSON(ctx, c.opt.InfoPath, infoRequest{URL: sourceURL}, &resp); err != nil {
		return domain.Metadata{}, fmt.Errorf("fetch metadata: %w", err)
	}
	if resp.Error != nil {
		return domain.Metadata{}, &domain.RemoteRejectedError{Message: *resp.Error}
	}
	if resp.IsPlaylist == nil {
		c.log.Warn("metadata response without is_playlist", zap.String("url", sourceURL))
		return domain.Metadata{}, fmt.Errorf("fetch metadata: malformed response: %w", domain.ErrUnreachable)
	}
	return resp.metadata(), nil
}

// Launch starts a download and returns the backend-issued identity.
func (c *Client) Launch(ctx context.Context, req domain.LaunchRequest) (string, error) {
	body := downloadRequest{URL: req.URL, Mode: req.Mode, Quality: req.Quality}
	if req.Mode == domain.DownloadCollectionBulk {
		body.Quality = nil
	}

	var resp downloadResponse
	if err := c.postJSON(ctx, c.opt.DownloadPath, body, &resp); err != nil {
		return "", fmt.Errorf("launch download: %w", err)
	}
	if resp.Error != nil {
		return "", &domain.RemoteRejectedError{Message: *resp.Error}
	}
	id := strings.TrimSpace(resp.DownloadID)
	if id == "" {
		return "", fmt.Errorf("launch download: response without download_id: %w", domain.ErrUnreachable)
	}
	return id, nil
}

// postJSON sends body and decodes the reply into out. Any reply that decodes
// is returned to the caller regardless of HTTP status so server-authored
// errors reach the user; everything else maps to domain.ErrUnreachable.
func (c *Client) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	endpoint := c.opt.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrUnreachable, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	log := c.log.With(zap.String("request_id", requestID), zap.String("endpoint", path))
	started := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn("request failed", zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.Warn("read response", zap.Int("status", resp.StatusCode), zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrUnreachable, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Warn("decode response", zap.Int("status", resp.StatusCode), zap.Int("bytes", len(raw)), zap.Error(err))
		return fmt.Errorf("%w: decode %s: %w", domain.ErrUnreachable, resp.Status, err)
	}
	log.Debug("response", zap.Int("status", resp.StatusCode), zap.Duration("elapsed", time.Since(started)))
	return nil
}
