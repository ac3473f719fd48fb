package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mklein/cine-rag/internal/elasticsearch"
	"github.com/mklein/cine-rag/internal/rag"
	"github.com/mklein/cine-rag/internal/store"
	"github.com/mklein/cine-rag/pkg/models"
)

// Config holds MCP server configuration.
type Config struct {
	Name      string
	Version   string
	K         int
	Threshold float64
}

// Searcher exposes the vector index to the MCP tools. Satisfied by
// *store.Store.
type Searcher interface {
	Query(ctx context.Context, text string, k int, threshold float64) ([]store.Match, error)
	List(ctx context.Context, limit int) ([]elasticsearch.Doc, error)
	Sentiment(ctx context.Context, title string, year int) (*models.Sentiment, error)
}

// Asker answers free-form questions. Satisfied by *rag.Orchestrator.
type Asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

// Server exposes the movie index and RAG answering over MCP.
type Server struct {
	mcpServer *server.MCPServer
	searcher  Searcher
	asker     Asker
	config    Config
}

// movieSummary is the tool-facing shape of an indexed movie.
type movieSummary struct {
	Title       string  `json:"title"`
	Year        int     `json:"year,omitempty"`
	Director    string  `json:"director,omitempty"`
	Genres      string  `json:"genres,omitempty"`
	Ratings     string  `json:"ratings,omitempty"`
	Sources     string  `json:"sources,omitempty"`
	ReviewCount int     `json:"review_count"`
	Score       float64 `json:"score,omitempty"`
}

// NewServer creates a new MCP server with movie tools.
func NewServer(config Config, searcher Searcher, asker Asker) *Server {
	if config.K <= 0 {
		config.K = 5
	}
	if config.Threshold <= 0 {
		config.Threshold = 0.1
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)

	s := &Server{
		mcpServer: mcpServer,
		searcher:  searcher,
		asker:     asker,
		config:    config,
	}

	searchTool := mcp.NewTool("search_movies",
		mcp.WithDescription("Semantic search over locally indexed movies. Returns matching movies with ratings and similarity scores."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query, e.g. a theme, plot element, or movie title"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (default: 5)"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Minimum similarity score in [0, 1] (default: 0.1)"),
		),
	)
	mcpServer.AddTool(searchTool, s.searchHandler)

	askTool := mcp.NewTool("ask_movies",
		mcp.WithDescription("Answer a question about indexed movies using their reviews as grounding context. Only uses locally indexed data."),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The question to answer"),
		),
	)
	mcpServer.AddTool(askTool, s.askHandler)

	listTool := mcp.NewTool("list_movies",
		mcp.WithDescription("List movies currently in the index, ordered by title."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of movies to return (default: 100)"),
		),
	)
	mcpServer.AddTool(listTool, s.listHandler)

	sentimentTool := mcp.NewTool("movie_sentiment",
		mcp.WithDescription("Review-sentiment breakdown for one indexed movie: positive/neutral/negative counts and the average review rating."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Movie title"),
		),
		mcp.WithNumber("year",
			mcp.Description("Release year to disambiguate the title"),
		),
	)
	mcpServer.AddTool(sentimentTool, s.sentimentHandler)

	return s
}

// searchHandler handles the search_movies tool call.
func (s *Server) searchHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}

	limit := req.GetInt("limit", s.config.K)
	threshold := req.GetFloat("threshold", s.config.Threshold)

	summaries, err := s.handleSearch(ctx, query, limit, threshold)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	result, err := json.Marshal(summaries)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// askHandler handles the ask_movies tool call.
func (s *Server) askHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question parameter is required"), nil
	}

	answer, err := s.asker.Ask(ctx, question)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ask failed: %v", err)), nil
	}

	result, err := json.Marshal(answer)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// listHandler handles the list_movies tool call.
func (s *Server) listHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 100)

	summaries, err := s.handleList(ctx, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}

	result, err := json.Marshal(summaries)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// sentimentHandler handles the movie_sentiment tool call.
func (s *Server) sentimentHandler(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("title parameter is required"), nil
	}

	year := req.GetInt("year", 0)

	sentiment, err := s.handleSentiment(ctx, title, year)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("sentiment failed: %v", err)), nil
	}
	if sentiment == nil {
		return mcp.NewToolResultError(fmt.Sprintf("movie not found in index: %s", title)), nil
	}

	result, err := json.Marshal(sentiment)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal sentiment: %v", err)), nil
	}

	return mcp.NewToolResultText(string(result)), nil
}

// handleSearch runs a threshold-filtered semantic search.
func (s *Server) handleSearch(ctx context.Context, query string, limit int, threshold float64) ([]movieSummary, error) {
	matches, err := s.searcher.Query(ctx, query, limit, threshold)
	if err != nil {
		return nil, err
	}

	summaries := make([]movieSummary, len(matches))
	for i, m := range matches {
		summaries[i] = docSummary(m.Doc)
		summaries[i].Score = m.Score
	}
	return summaries, nil
}

// handleSentiment looks up the stored sentiment summary for one movie.
// Returns nil when the movie is not indexed.
func (s *Server) handleSentiment(ctx context.Context, title string, year int) (*models.Sentiment, error) {
	return s.searcher.Sentiment(ctx, title, year)
}

// handleList returns indexed movies ordered by title.
func (s *Server) handleList(ctx context.Context, limit int) ([]movieSummary, error) {
	docs, err := s.searcher.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	summaries := make([]movieSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = docSummary(doc)
	}
	return summaries, nil
}

func docSummary(doc elasticsearch.Doc) movieSummary {
	return movieSummary{
		Title:       doc.Title,
		Year:        doc.Year,
		Director:    doc.Director,
		Genres:      doc.Genres,
		Ratings:     doc.Ratings,
		Sources:     doc.Sources,
		ReviewCount: doc.ReviewCount,
	}
}

// ServeStdio starts the MCP server using stdio transport.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
