package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mklein/cine-rag/internal/events"
	"github.com/mklein/cine-rag/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	addYear    int
	addNoIndex bool
)

var addCmd = &cobra.Command{
	Use:   "add [title]...",
	Short: "Scrape a movie from all sources and index it",
	Long: `Scrape a movie from IMDb, Rotten Tomatoes, and Metacritic, merge the
results into one record, archive the raw pages, and index the record for
semantic search.

Examples:
  # Add a movie
  cine-rag add "The Matrix"

  # Disambiguate by year
  cine-rag add "Solaris" --year 1972

  # Add several movies in one run
  cine-rag add "Alien" "Blade Runner" "Heat"

  # Archive only, skip indexing
  cine-rag add "The Matrix" --no-index`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().IntVar(&addYear, "year", 0, "Release year to disambiguate the title")
	addCmd.Flags().BoolVar(&addNoIndex, "no-index", false, "Archive raw pages only, skip indexing")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	s, err := newStore(cfg)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, s)
	if err != nil {
		return err
	}

	// Event-driven flow needs the archive as the hand-off point
	if cfg.Storage.Endpoint != "" {
		if addNoIndex {
			return runCollectOnly(ctx, p, args)
		}
		return runAddWithEvents(ctx, p, args, cfg.Storage.Bucket)
	}

	if addNoIndex {
		return fmt.Errorf("--no-index requires S3 storage to be configured")
	}

	// No archive configured: run each movie straight through
	for _, title := range args {
		fmt.Printf("Adding: %s\n", title)

		result, err := p.Run(ctx, title, addYear)
		if err != nil {
			fmt.Printf("  Error: %v\n", err)
			continue
		}
		printAddResult(result)
	}
	return nil
}

// runCollectOnly archives raw pages without indexing.
func runCollectOnly(ctx context.Context, p *pipeline.Pipeline, titles []string) error {
	for _, title := range titles {
		fmt.Printf("Collecting: %s\n", title)

		result, err := p.Collect(ctx, title, addYear)
		if err != nil {
			fmt.Printf("  Error: %v\n", err)
			continue
		}

		fmt.Printf("  Sources: %s, Reviews: %d, Prefix: %s\n",
			strings.Join(result.SourcesScraped, ", "), result.ReviewCount, result.ArchivePrefix)
	}
	fmt.Println("Run 'cine-rag reindex <title>' to index these movies")
	return nil
}

// runAddWithEvents coordinates scraping and indexing over a channel: the
// producer archives each movie, the consumer re-parses the archive and
// writes the index entry.
func runAddWithEvents(ctx context.Context, p *pipeline.Pipeline, titles []string, bucket string) error {
	aggregationEvents := make(chan events.AggregationCompleteEvent)
	done := make(chan struct{})

	var totalIndexed int
	var totalDuration time.Duration

	// Indexing worker (consumer)
	go func() {
		defer close(done)
		for event := range aggregationEvents {
			fmt.Printf("Indexing: %s (%d reviews)\n", event.Title, event.ReviewCount)

			result, err := p.ReingestPrefix(ctx, event.Prefix)
			if err != nil {
				fmt.Printf("  Error: %v\n", err)
				continue
			}

			totalIndexed++
			totalDuration += result.Duration

			fmt.Printf("  Indexed: %s (%d), Duration: %v\n",
				result.Title, result.Year, result.Duration.Round(time.Millisecond))
			for _, w := range result.Warnings {
				fmt.Printf("  Warning: %s\n", w)
			}
		}
	}()

	// Scrape and archive each title (producer)
	collected := 0
	for _, title := range titles {
		fmt.Printf("Scraping: %s\n", title)

		result, err := p.Collect(ctx, title, addYear)
		if err != nil {
			fmt.Printf("  Error: %v\n", err)
			continue
		}

		collected++
		fmt.Printf("  Sources: %s, Reviews: %d\n",
			strings.Join(result.SourcesScraped, ", "), result.ReviewCount)

		aggregationEvents <- events.AggregationCompleteEvent{
			Bucket:        bucket,
			Prefix:        result.ArchivePrefix,
			MovieID:       result.MovieID,
			Title:         result.Title,
			Year:          result.Year,
			Sources:       result.SourcesScraped,
			FailedSources: result.SourcesFailed,
			ReviewCount:   result.ReviewCount,
			Timestamp:     time.Now(),
		}
	}

	close(aggregationEvents)
	<-done

	fmt.Printf("\nTotal: %d movies scraped, %d indexed in %v\n",
		collected, totalIndexed, totalDuration.Round(time.Millisecond))
	return nil
}

func printAddResult(result *pipeline.Result) {
	fmt.Printf("  Title: %s (%d)\n", result.Title, result.Year)
	fmt.Printf("  Sources: %s, Reviews: %d, Duration: %v\n",
		strings.Join(result.SourcesScraped, ", "), result.ReviewCount, result.Duration.Round(time.Millisecond))
	if len(result.SourcesFailed) > 0 {
		fmt.Printf("  Failed sources: %s\n", strings.Join(result.SourcesFailed, ", "))
	}
	for _, w := range result.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
}
