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
	askFormat    string
	askK         int
	askThreshold float64
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question using indexed movies as context",
	Long: `Answer a question about movies using only locally indexed data as
grounding context. Movies must be added first with 'cine-rag add'.

Examples:
  # Ask about an indexed movie
  cine-rag ask "Is The Matrix worth watching?"

  # Compare movies
  cine-rag ask "Which has better reviews, Alien or Blade Runner?"

  # JSON output for scripting
  cine-rag ask "What do critics say about Heat?" --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askFormat, "format", "text", "Output format: text or json")
	askCmd.Flags().IntVar(&askK, "k", 0, "Number of movies to retrieve as context (default from config)")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "Minimum similarity score, 0 disables the gate (default from config)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	question := args[0]
	cfg := GetConfig()
	if askK > 0 {
		cfg.RAG.K = askK
	}
	if cmd.Flags().Changed("threshold") {
		if askThreshold < 0 || askThreshold > 1 {
			return fmt.Errorf("threshold must be in [0, 1], got %v", askThreshold)
		}
		cfg.RAG.Threshold = askThreshold
	}

	s, err := newStore(cfg)
	if err != nil {
		return err
	}
	orchestrator, err := newOrchestrator(cfg, s)
	if err != nil {
		return err
	}

	answer, err := orchestrator.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if askFormat == "json" {
		output, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range answer.Sources {
			fmt.Printf("  %s (%d), score %.2f\n", src.Title, src.Year, src.Score)
		}
	}
	return nil
}
