package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/config"
)

type commandContext struct {
	configFlag    string
	backendFlag   string
	transportFlag string
	debug         bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = usageError{err: fmt.Errorf("load config: %w", err)}
			return
		}
		if err := cfg.Override(c.backendFlag, c.transportFlag); err != nil {
			c.configErr = usageError{err: err}
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}
	var session sessionFlags

	rootCmd := &cobra.Command{
		Use:   "ytw",
		Short: "Download videos, songs and playlists through a download backend",
		Long: "ytw walks through platform, mode, link and quality, then follows the\n" +
			"download on the backend until it completes. It runs full-screen in a\n" +
			"terminal and falls back to plain line output otherwise (or with --cli).",
		Args:          noArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skipConfigLoad"] == "true" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			session.debug = ctx.debug
			session.tui = !session.cli && isTerminal(os.Stdout) && isTerminal(os.Stdin)
			return runSession(cmd.Context(), cfg, session, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: err}
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&ctx.configFlag, "config", "c", "", "Configuration file path")
	pf.StringVar(&ctx.backendFlag, "backend", "", "Download backend base URL (overrides config)")
	pf.StringVar(&ctx.transportFlag, "transport", "", "Progress stream transport: sse or websocket")
	pf.BoolVar(&ctx.debug, "debug", false, "Write debug-level diagnostics to the log file")

	f := rootCmd.Flags()
	f.BoolVar(&session.cli, "cli", false, "Run in line mode (no TUI)")
	f.BoolVar(&session.quiet, "quiet", false, "Reduce line-mode output (no progress bar)")
	f.BoolVar(&session.logAlways, "log", false, "Always write the session transcript (ytw-log.md)")
	f.StringVar(&session.answers.Platform, "platform", "", "Line mode: youtube or music")
	f.StringVar(&session.answers.Mode, "mode", "", "Line mode: single or playlist (music only)")
	f.StringVar(&session.answers.URL, "url", "", "Line mode: link to download")
	f.StringVar(&session.answers.Quality, "quality", "", "Line mode: quality label, height/bitrate or 'best' (default: first offered)")

	rootCmd.AddCommand(newInfoCommand(ctx))
	rootCmd.AddCommand(newMockServerCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("unexpected argument %q for %q", args[0], cmd.CommandPath())
	}
	return nil
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
