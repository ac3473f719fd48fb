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
	searchLimit     int
	searchThreshold float64
	searchFormat    string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over indexed movies",
	Long: `Search the indexed movies by semantic similarity.

Examples:
  # Search by theme
  cine-rag search "dystopian future with rebels"

  # Limit results and raise the relevance bar
  cine-rag search "heist gone wrong" --limit 3 --threshold 0.5

  # JSON output for scripting
  cine-rag search "space horror" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "Maximum number of results")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0.1, "Minimum similarity score in [0, 1]")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "Output format: text or json")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	query := args[0]
	cfg := GetConfig()

	s, err := newStore(cfg)
	if err != nil {
		return err
	}

	matches, err := s.Query(ctx, query, searchLimit, searchThreshold)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(matches) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchFormat == "json" {
		output, err := json.MarshalIndent(matches, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(matches))
	for i, m := range matches {
		fmt.Printf("─── Result %d ───\n", i+1)
		fmt.Printf("Title:    %s (%d)\n", m.Doc.Title, m.Doc.Year)
		fmt.Printf("Score:    %.3f\n", m.Score)
		if m.Doc.Director != "" {
			fmt.Printf("Director: %s\n", m.Doc.Director)
		}
		if m.Doc.Genres != "" {
			fmt.Printf("Genres:   %s\n", m.Doc.Genres)
		}
		if m.Doc.Ratings != "" {
			fmt.Printf("Ratings:  %s\n", m.Doc.Ratings)
		}
		fmt.Printf("Reviews:  %d\n\n", m.Doc.ReviewCount)
	}

	return nil
}
