package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/domain"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/engine/wizard"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/logging"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/backend"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var platformFlag string

	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "Show what the backend offers for a link",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usagef("%s expects exactly one link", cmd.CommandPath())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			platform := domain.PlatformPrimary
			if strings.TrimSpace(platformFlag) != "" {
				p, ok := domain.ParsePlatform(platformFlag)
				if !ok {
					return usagef("--platform must be one of: youtube, music (got %q)", platformFlag)
				}
				platform = p
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg, ctx.debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			client := backend.New(backend.Options{
				BaseURL:      cfg.Backend.BaseURL,
				InfoPath:     cfg.Backend.InfoPath,
				DownloadPath: cfg.Backend.DownloadPath,
				Timeout:      cfg.RequestTimeout(),
				Logger:       logger,
			})
			meta, err := client.FetchMetadata(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", domain.UserMessage(err, domain.MessageFetchFailed), err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, metadataRows(meta), nil))
			if meta.IsCollection {
				fmt.Fprintln(out, "Playlists download every track as MP3; no quality choice.")
				return nil
			}
			options := wizard.BuildOptions(meta, platform)
			if len(options) == 0 {
				fmt.Fprintln(out, "No downloadable formats found for this URL.")
				return nil
			}
			rows := make([][]string, 0, len(options))
			for i, o := range options {
				rows = append(rows, []string{strconv.Itoa(i + 1), o.Label, o.Kind.Label(), o.Value.String()})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Quality", "Kind", "Value"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVar(&platformFlag, "platform", "", "Platform the options are built for: youtube or music")
	return cmd
}

func metadataRows(m domain.Metadata) [][]string {
	rows := [][]string{{"Title", m.Title}}
	if m.IsCollection {
		rows = append(rows, []string{"Type", "Playlist"}, []string{"Tracks", humanize.Comma(int64(m.ItemCount))})
	} else {
		rows = append(rows, []string{"Type", "Single item"})
		if m.ChannelOrArtist != "" {
			rows = append(rows, []string{"Channel", m.ChannelOrArtist})
		}
		if d := m.DurationLabel(); d != "" {
			rows = append(rows, []string{"Duration", d})
		}
	}
	if m.ThumbnailURL != "" {
		rows = append(rows, []string{"Thumbnail", m.ThumbnailURL})
	}
	return rows
}
