package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sitenav/page"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <page-url>",
	Short: "Fetch and parse a single page",
	Long:  `Fetches one page the way a navigation would and prints its title, metadata and content size.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	parser, err := page.NewParser(cfg.Site.ContentSelector)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if d := cfg.NavigationTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	res, err := newFetcher(cfg).Fetch(ctx, args[0])
	if err != nil {
		return err
	}
	pg, err := parser.ParseString(res.HTML)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "URL:      %s\n", res.FinalURL)
	fmt.Fprintf(out, "Status:   %d (%s)\n", res.Status, time.Since(start).Round(time.Millisecond))
	if pg.HasTitle {
		fmt.Fprintf(out, "Title:    %s\n", pg.Title)
	} else {
		fmt.Fprintln(out, "Title:    (none)")
	}
	fmt.Fprintf(out, "Content:  %d bytes in %s\n", len(pg.Content), parser.Selector())
	for _, m := range pg.Meta {
		fmt.Fprintf(out, "  %-15s %s\n", m.Key, m.Value)
	}
	return nil
}
