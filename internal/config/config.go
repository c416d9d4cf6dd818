package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Backend describes where the download service lives.
type Backend struct {
	BaseURL               string `toml:"base_url"`
	InfoPath              string `toml:"info_path"`
	DownloadPath          string `toml:"download_path"`
	ProgressPath          string `toml:"progress_path"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Stream selects the progress stream transport.
type Stream struct {
	Transport string `toml:"transport"`
}

// Logging contains diagnostic log and transcript settings.
type Logging struct {
	Level         string `toml:"level"`
	File          string `toml:"file"`
	TranscriptDir string `toml:"transcript_dir"`
}

// Mock configures the scripted development backend.
type Mock struct {
	Listen string `toml:"listen"`
	TickMS int    `toml:"tick_ms"`
	Fail   string `toml:"fail"`
}

// Config encapsulates all configuration values for ytw.
//
// Configuration sections:
//   - Backend: service base URL, endpoint paths and request timeout
//   - Stream: progress transport (sse or websocket)
//   - Logging: diagnostic log level/file and transcript directory
//   - Mock: the scripted backend served by `ytw mock-server`
type Config struct {
	Backend Backend `toml:"backend"`
	Stream  Stream  `toml:"stream"`
	Logging Logging `toml:"logging"`
	Mock    Mock    `toml:"mock"`
}

const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ytw/config.toml")
}

// Load locates, parses, and validates a configuration file, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("ytw.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("YTW_BACKEND_URL"); ok && strings.TrimSpace(v) != "" {
		c.Backend.BaseURL = v
	}
	if v, ok := lookup("YTW_STREAM_TRANSPORT"); ok && strings.TrimSpace(v) != "" {
		c.Stream.Transport = v
	}
	if v, ok := lookup("YTW_LOG_LEVEL"); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = v
	}
}

func (c *Config) normalize() error {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	c.Backend.InfoPath = normalizePath(c.Backend.InfoPath, defaultInfoPath)
	c.Backend.DownloadPath = normalizePath(c.Backend.DownloadPath, defaultDownloadPath)
	c.Backend.ProgressPath = strings.TrimRight(normalizePath(c.Backend.ProgressPath, defaultProgressPath), "/")
	if c.Backend.RequestTimeoutSeconds <= 0 {
		c.Backend.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}

	c.Stream.Transport = strings.ToLower(strings.TrimSpace(c.Stream.Transport))
	switch c.Stream.Transport {
	case "":
		c.Stream.Transport = TransportSSE
	case "ws":
		c.Stream.Transport = TransportWebSocket
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	var err error
	if c.Logging.File, err = expandPath(strings.TrimSpace(c.Logging.File)); err != nil {
		return err
	}
	if c.Logging.TranscriptDir, err = expandPath(strings.TrimSpace(c.Logging.TranscriptDir)); err != nil {
		return err
	}

	c.Mock.Listen = strings.TrimSpace(c.Mock.Listen)
	if c.Mock.Listen == "" {
		c.Mock.Listen = defaultMockListen
	}
	if c.Mock.TickMS <= 0 {
		c.Mock.TickMS = defaultMockTickMS
	}
	c.Mock.Fail = strings.ToLower(strings.TrimSpace(c.Mock.Fail))
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("backend.base_url must be an http(s) URL (got %q)", c.Backend.BaseURL)
	}
	switch c.Stream.Transport {
	case TransportSSE, TransportWebSocket:
	default:
		return fmt.Errorf("stream.transport must be one of: sse, websocket (got %q)", c.Stream.Transport)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error (got %q)", c.Logging.Level)
	}
	switch c.Mock.Fail {
	case "", "info", "download", "stream", "drop":
	default:
		return fmt.Errorf("mock.fail must be one of: info, download, stream, drop (got %q)", c.Mock.Fail)
	}
	return nil
}

// Override applies command-line values on top of file and environment
// settings, then re-validates. Empty values leave the setting unchanged.
func (c *Config) Override(baseURL, transport string) error {
	if v := strings.TrimSpace(baseURL); v != "" {
		c.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(transport); v != "" {
		c.Stream.Transport = v
	}
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// RequestTimeout returns the per-request timeout for metadata and launch calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutSeconds) * time.Second
}

// MockTick returns the progress cadence of the mock backend.
func (c *Config) MockTick() time.Duration {
	return time.Duration(c.Mock.TickMS) * time.Millisecond
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() (string, error) {
	b, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(b), nil
}

func normalizePath(p string, fallback string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		p = fallback
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
