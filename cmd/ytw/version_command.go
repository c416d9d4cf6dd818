package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/github"
	"github.com/abhianand123/The-Ultimate-YT-Downloader/internal/services/release"
)

const (
	releaseOwner = "abhianand123"
	releaseRepo  = "The-Ultimate-YT-Downloader"
)

func newVersionCommand() *cobra.Command {
	var (
		check  bool
		apiURL string
	)

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version",
		Args:        noArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ytw %s (%s, %s)\n", Version, GitCommit, BuildDate)
			if !check {
				return nil
			}
			client := github.New(github.Options{BaseURL: apiURL, Token: os.Getenv("GITHUB_TOKEN")})
			return checkForUpdate(cmd.Context(), client, out)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check GitHub for a newer release")
	cmd.Flags().StringVar(&apiURL, "api-url", github.DefaultBaseURL, "GitHub API base URL")
	_ = cmd.Flags().MarkHidden("api-url")
	return cmd
}

func checkForUpdate(ctx context.Context, lister release.Lister, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	info, err := release.DetectLatest(ctx, lister, releaseOwner, releaseRepo, release.DetectOptions{})
	if err != nil {
		return fmt.Errorf("check for updates: %w", err)
	}
	newer, known := release.Newer(Version, info.Version)
	switch {
	case !known:
		fmt.Fprintf(out, "Latest release: %s %s\n", info.Version, info.URL)
	case newer:
		fmt.Fprintf(out, "Update available: %s -> %s %s\n", Version, info.Version, info.URL)
	default:
		fmt.Fprintln(out, "ytw is up to date.")
	}
	return nil
}
