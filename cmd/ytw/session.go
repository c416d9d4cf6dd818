package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/config"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/engine/wizard"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/logging"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/backend"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/stream"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/ui"
)

type sessionFlags struct {
	cli       bool
	tui       bool
	quiet     bool
	logAlways bool
	debug     bool
	answers   lineAnswers
}

var errSessionRunning = errors.New("another ytw session is already running")

// runSession runs one wizard session in the TUI or in line mode and writes
// the transcript afterwards.
func runSession(ctx context.Context, cfg *config.Config, flags sessionFlags, stdout, stderr io.Writer) error {
	if !flags.tui {
		if err := flags.answers.validate(); err != nil {
			return err
		}
	}

	lock, err := acquireSessionLock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	logger, err := logging.NewFromConfig(cfg, flags.debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("session start",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String(logging.FieldTransport, cfg.Stream.Transport),
		zap.Bool("tui", flags.tui))

	client := backend.New(backend.Options{
		BaseURL:      cfg.Backend.BaseURL,
		InfoPath:     cfg.Backend.InfoPath,
		DownloadPath: cfg.Backend.DownloadPath,
		Timeout:      cfg.RequestTimeout(),
		Logger:       logger,
	})
	sub, err := stream.New(stream.Options{
		BaseURL:      cfg.Backend.BaseURL,
		ProgressPath: cfg.Backend.ProgressPath,
		Transport:    cfg.Stream.Transport,
		Logger:       logger,
	})
	if err != nil {
		return usageError{err: err}
	}
	engine := wizard.New(wizard.Options{Backend: client, Subscriber: sub, Logger: logger})

	transcript := logging.NewEventLogger(logging.Config{
		Always:     flags.logAlways,
		Dir:        cfg.Logging.TranscriptDir,
		BackendURL: cfg.Backend.BaseURL,
		Transport:  cfg.Stream.Transport,
		Version:    Version,
	})

	raw := make(chan domain.Event, 256)
	events := make(chan domain.Event, 256)
	actions := make(chan domain.Action, 16)
	engineCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	engine.Run(engineCtx, raw, actions)
	go recordEvents(raw, events, transcript)

	var runErr error
	if flags.tui {
		runErr = ui.Run(ctx, events, actions, ui.Meta{
			Version:   Version,
			Backend:   cfg.Backend.BaseURL,
			Transport: cfg.Stream.Transport,
		}, cancel)
	} else {
		runErr = runLine(ctx, events, actions, cancel, flags.answers, flags.quiet, stdout, stderr)
	}
	cancel()
	// Drain so the recorder sees everything the engine emitted before exiting.
	for range events {
	}

	if runErr != nil {
		transcript.MarkFailure()
		logger.Warn("session failed", zap.Error(runErr))
	}
	res, logErr := transcript.Finalize()
	if logErr != nil {
		fmt.Fprintln(stderr, logErr)
	}
	if res.Written {
		fmt.Fprintf(stderr, "Session log saved to %s\n", res.Path)
	}
	return runErr
}

// recordEvents forwards every engine event to the front-end and keeps a
// transcript of it. out is closed once in is.
func recordEvents(in <-chan domain.Event, out chan<- domain.Event, transcript *logging.EventLogger) {
	defer close(out)
	for ev := range in {
		transcript.Record(ev)
		out <- ev
	}
}

func acquireSessionLock() (*flock.Flock, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("resolve cache directory: %w", err)
	}
	dir = filepath.Join(dir, "ytw")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	lock := flock.New(filepath.Join(dir, "session.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !ok {
		return nil, errSessionRunning
	}
	return lock, nil
}
