// Package release finds the newest published release of a GitHub project,
// caching the answer in the user cache dir.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/github"
)

const (
	SourceAPI   = "github_api"
	SourceCache = "cache"
)

type Info struct {
	Repo         string    `json:"repo"`
	Version      string    `json:"version"`
	Tag          string    `json:"tag"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	IsPrerelease bool      `json:"prerelease"`
	FetchedAt    time.Time `json:"fetched_at"`
	Source       string    `json:"-"`
}

// Lister is the part of the GitHub client the detector needs.
type Lister interface {
	ReleasesPage(ctx context.Context, owner, repo string, page int) ([]github.Release, error)
}

type DetectOptions struct {
	MaxPages          int
	CacheTTL          time.Duration
	IncludePrerelease bool
	// CacheDir holds the cached pick. Empty uses the user cache dir.
	CacheDir string
	Logger   *zap.Logger
}

// DetectLatest returns the highest stable release of owner/repo. A fresh
// cache entry short-circuits the API; a failed fetch is not cached.
func DetectLatest(ctx context.Context, lister Lister, owner, repo string, opts DetectOptions) (Info, error) {
	if opts.MaxPages <= 0 {
		opts.MaxPages = 3
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.Named("release")
	fullRepo := owner + "/" + repo

	path, pathErr := cachePath(opts.CacheDir, fullRepo)
	if pathErr == nil {
		if cached, ok := readCache(path, fullRepo, opts.CacheTTL); ok {
			cached.Source = SourceCache
			log.Debug("release from cache", zap.String("repo", fullRepo), zap.String("version", cached.Version))
			return cached, nil
		}
	}

	var all []github.Release
	for page := 1; page <= opts.MaxPages; page++ {
		items, err := lister.ReleasesPage(ctx, owner, repo, page)
		if err != nil {
			return Info{}, err
		}
		if len(items) == 0 {
			break
		}
		all = append(all, items...)
	}
	if len(all) == 0 {
		return Info{}, errors.New("no releases published")
	}

	info, err := SelectHighest(fullRepo, all, opts.IncludePrerelease)
	if err != nil {
		return Info{}, err
	}
	info.FetchedAt = time.Now()
	info.Source = SourceAPI

	if pathErr == nil {
		if err := writeCache(path, info); err != nil {
			log.Debug("release cache not written", zap.Error(err))
		}
	}
	return info, nil
}

type cacheFile struct {
	Release Info `json:"release"`
}

func cachePath(dir, repo string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(base, "ytw")
	}
	safe := strings.NewReplacer("/", "_", "\\", "_", " ", "_", ":", "_").Replace(strings.TrimSpace(repo))
	safe = strings.Trim(safe, "_")
	if safe == "" {
		safe = "unknown"
	}
	return filepath.Join(dir, "release-"+safe+".json"), nil
}

func readCache(path, repo string, ttl time.Duration) (Info, bool) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Info{}, false
	}
	var f cacheFile
	if err := json.Unmarshal(b, &f); err != nil {
		return Info{}, false
	}
	if f.Release.Repo != repo || f.Release.FetchedAt.IsZero() {
		return Info{}, false
	}
	if time.Since(f.Release.FetchedAt) > ttl {
		return Info{}, false
	}
	return f.Release, true
}

func writeCache(path string, info Info) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cacheFile{Release: info}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
