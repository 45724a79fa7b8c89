package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"sitenav/config"
	"sitenav/fetcher"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sitenav",
	Short: "Partial navigation for static sites",
	Long: `Sitenav loads a site's root page once and then follows same-origin
page links by fetching only the new page's content region, title and
metadata, keeping a browser-style history of what was visited.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the command line.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ~/.config/sitenav/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newFetcher builds the page fetcher selected by the config.
func newFetcher(cfg *config.Config) fetcher.Fetcher {
	opts := fetcher.Options{
		UserAgent:      cfg.Fetcher.UserAgent,
		TimeoutSeconds: cfg.Fetcher.TimeoutSeconds,
		MaxBodyBytes:   cfg.Fetcher.MaxBodyBytes,
		ChromePath:     cfg.Fetcher.ChromePath,
	}
	if cfg.Fetcher.Mode == config.ModeBrowser {
		return fetcher.NewBrowser(opts)
	}
	return fetcher.NewHTTP(opts)
}
