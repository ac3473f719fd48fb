package cmd

import (
	"fmt"

	"github.com/mklein/cine-rag/internal/mcp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the MCP server for movie retrieval.

The server communicates via stdio and provides three tools:
  - search_movies: Semantic search over indexed movies
  - ask_movies:    Answer a question grounded in indexed reviews
  - list_movies:   List movies currently in the index

Example:
  cine-rag serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	s, err := newStore(cfg)
	if err != nil {
		return err
	}
	orchestrator, err := newOrchestrator(cfg, s)
	if err != nil {
		return err
	}

	server := mcp.NewServer(mcp.Config{
		Name:      cfg.MCP.Name,
		Version:   cfg.MCP.Version,
		K:         cfg.RAG.K,
		Threshold: cfg.RAG.Threshold,
	}, s, orchestrator)

	fmt.Fprintln(cmd.ErrOrStderr(), "Starting MCP server...")

	return server.ServeStdio()
}
