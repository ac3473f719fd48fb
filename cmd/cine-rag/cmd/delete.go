package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var deleteYear int

var deleteCmd = &cobra.Command{
	Use:   "delete [title]",
	Short: "Remove a movie from the index",
	Long: `Remove a movie from the index. Archived raw pages are kept, so the
movie can be restored later with 'cine-rag reindex'.

Examples:
  cine-rag delete "The Matrix"
  cine-rag delete "Solaris" --year 1972`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().IntVar(&deleteYear, "year", 0, "Release year to disambiguate the title")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	title := args[0]
	cfg := GetConfig()

	s, err := newStore(cfg)
	if err != nil {
		return err
	}

	removed, err := s.Delete(ctx, title, deleteYear)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if !removed {
		fmt.Printf("Movie not found in index: %s\n", title)
		return nil
	}

	fmt.Printf("Removed from index: %s\n", title)
	return nil
}
