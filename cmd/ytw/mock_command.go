package main

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/engine/mock"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/logging"
)

func newMockServerCommand(ctx *commandContext) *cobra.Command {
	var (
		listen string
		fail   string
		tick   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve a scripted download backend for local development",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(listen) == "" {
				listen = cfg.Mock.Listen
			}
			if !cmd.Flags().Changed("fail") {
				fail = cfg.Mock.Fail
			}
			switch fail {
			case mock.FailNone, mock.FailInfo, mock.FailDownload, mock.FailStream, mock.FailDrop:
			default:
				return usagef("--fail must be one of: info, download, stream, drop (got %q)", fail)
			}
			if tick <= 0 {
				tick = cfg.MockTick()
			}

			logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Development: ctx.debug})
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if !ctx.debug {
				gin.SetMode(gin.ReleaseMode)
			}

			srv := mock.New(mock.Options{
				InfoPath:     cfg.Backend.InfoPath,
				DownloadPath: cfg.Backend.DownloadPath,
				ProgressPath: cfg.Backend.ProgressPath,
				Tick:         tick,
				Fail:         fail,
				Logger:       logger,
			})
			out := cmd.OutOrStdout()
			return srv.ListenAndServe(cmd.Context(), listen, func(addr net.Addr) {
				fmt.Fprintf(out, "Mock backend listening on http://%s\n", addr)
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&fail, "fail", "", "Failure to script: info, download, stream or drop")
	cmd.Flags().DurationVar(&tick, "tick", 0, "Progress cadence (default from config)")
	return cmd
}
