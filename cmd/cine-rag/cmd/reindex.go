package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var reindexYear int

var reindexCmd = &cobra.Command{
	Use:   "reindex [title]",
	Short: "Rebuild a movie's index entry from its archive",
	Long: `Re-parse a movie's archived raw pages and rebuild its index entry,
without scraping the source sites again. Useful after parser fixes or an
embedding model change.

Examples:
  cine-rag reindex "The Matrix"
  cine-rag reindex "Solaris" --year 1972`,
	Args: cobra.ExactArgs(1),
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)

	reindexCmd.Flags().IntVar(&reindexYear, "year", 0, "Release year to disambiguate the title")
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	title := args[0]
	cfg := GetConfig()

	s, err := newStore(cfg)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, s)
	if err != nil {
		return err
	}

	fmt.Printf("Reindexing: %s\n", title)

	result, err := p.Reingest(ctx, title, reindexYear)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("  Title: %s (%d)\n", result.Title, result.Year)
	fmt.Printf("  Archive: %s\n", result.ArchivePrefix)
	fmt.Printf("  Sources: %s, Reviews: %d, Duration: %v\n",
		strings.Join(result.SourcesScraped, ", "), result.ReviewCount, result.Duration.Round(time.Millisecond))
	for _, w := range result.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}

	return nil
}
