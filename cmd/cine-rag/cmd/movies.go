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
	moviesLimit  int
	moviesFormat string
)

var moviesCmd = &cobra.Command{
	Use:   "movies",
	Short: "List indexed movies",
	Long: `List the movies currently in the index, ordered by title.

Examples:
  # List everything
  cine-rag movies

  # JSON output for scripting
  cine-rag movies --format json`,
	RunE: runMovies,
}

func init() {
	rootCmd.AddCommand(moviesCmd)

	moviesCmd.Flags().IntVar(&moviesLimit, "limit", 100, "Maximum number of movies to list")
	moviesCmd.Flags().StringVar(&moviesFormat, "format", "text", "Output format: text or json")
}

func runMovies(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := GetConfig()

	s, err := newStore(cfg)
	if err != nil {
		return err
	}

	docs, err := s.List(ctx, moviesLimit)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}
	count, err := s.Count(ctx)
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}

	if moviesFormat == "json" {
		output, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	if len(docs) == 0 {
		fmt.Println("No movies indexed yet. Add one with 'cine-rag add'.")
		return nil
	}

	fmt.Printf("Indexed movies: %d\n\n", count)
	for _, doc := range docs {
		fmt.Printf("  %s (%d)\n", doc.Title, doc.Year)
		if doc.Ratings != "" {
			fmt.Printf("    Ratings: %s\n", doc.Ratings)
		}
		fmt.Printf("    Reviews: %d, Sources: %s\n", doc.ReviewCount, doc.Sources)
	}

	return nil
}
