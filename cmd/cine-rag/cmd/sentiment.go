package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	sentimentYear   int
	sentimentFormat string
)

var sentimentCmd = &cobra.Command{
	Use:   "sentiment [title]",
	Short: "Show the review-sentiment breakdown for an indexed movie",
	Long: `Show how an indexed movie's reviews break down by rating: reviews
rated 7 or higher count as positive, 4 or lower as negative, and the rest
as neutral. Unrated reviews count as neutral and are left out of the
average.

Examples:
  cine-rag sentiment "The Matrix"
  cine-rag sentiment "Solaris" --year 1972
  cine-rag sentiment "Heat" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSentiment,
}

func init() {
	rootCmd.AddCommand(sentimentCmd)

	sentimentCmd.Flags().IntVar(&sentimentYear, "year", 0, "Release year to disambiguate the title")
	sentimentCmd.Flags().StringVar(&sentimentFormat, "format", "text", "Output format: text or json")
}

func runSentiment(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	title := args[0]
	cfg := GetConfig()

	s, err := newStore(cfg)
	if err != nil {
		return err
	}

	sentiment, err := s.Sentiment(ctx, title, sentimentYear)
	if err != nil {
		return fmt.Errorf("sentiment failed: %w", err)
	}
	if sentiment == nil {
		fmt.Printf("Movie not found in index: %s\n", title)
		return nil
	}

	if sentimentFormat == "json" {
		output, err := json.MarshalIndent(sentiment, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Sentiment for %s:\n", title)
	fmt.Printf("  Total reviews: %d\n", sentiment.TotalReviews)
	fmt.Printf("  Rated reviews: %d\n", sentiment.RatedReviews)
	if sentiment.RatedReviews > 0 {
		fmt.Printf("  Average rating: %.2f/10\n", sentiment.AverageRating)
	}

	positive, neutral, negative := sentiment.Percentages()
	fmt.Println("  Distribution:")
	fmt.Printf("    Positive: %d (%.1f%%)\n", sentiment.Positive, positive)
	fmt.Printf("    Neutral:  %d (%.1f%%)\n", sentiment.Neutral, neutral)
	fmt.Printf("    Negative: %d (%.1f%%)\n", sentiment.Negative, negative)
	return nil
}
