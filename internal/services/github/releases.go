// Package github lists repository releases through the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.github.com"
	perPage        = 100
)

type Release struct {
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	HTMLURL    string `json:"html_url"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

type Options struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string
	// Token is sent as a bearer token when set (GITHUB_TOKEN).
	Token   string
	Timeout time.Duration
	Logger  *zap.Logger
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func New(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 12 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(opts.Token),
		http:    &http.Client{Timeout: opts.Timeout},
		log:     opts.Logger.Named("github"),
	}
}

// ReleasesPage returns one page of releases, newest first. An empty page
// means there are no more.
func (c *Client) ReleasesPage(ctx context.Context, owner, repo string, page int) ([]Release, error) {
	if page < 1 {
		page = 1
	}
	u, err := url.Parse(c.baseURL + fmt.Sprintf("/repos/%s/%s/releases", url.PathEscape(owner), url.PathEscape(repo)))
	if err != nil {
		return nil, fmt.Errorf("github releases url: %w", err)
	}
	q := u.Query()
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github releases: %w", err)
	}
	defer resp.Body.Close()
	c.log.Debug("releases page", zap.String("repo", owner+"/"+repo), zap.Int("page", page), zap.Int("status", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("github releases: %s", resp.Status)
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, fmt.Errorf("decode github releases: %w", err)
	}
	return releases, nil
}
