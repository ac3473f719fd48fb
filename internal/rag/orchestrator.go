package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/mklein/cine-rag/internal/store"
)

// Retriever finds indexed movies relevant to a query.
type Retriever interface {
	Query(ctx context.Context, text string, k int, threshold float64) ([]store.Match, error)
}

// Completer generates text from a system and user prompt.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config tunes retrieval for answer generation.
type Config struct {
	K          int     // number of movies to retrieve
	Threshold  float64 // minimum similarity score in [0, 1]
	ExcerptLen int     // max review excerpt length per movie
}

// DefaultConfig returns the standard retrieval settings.
func DefaultConfig() Config {
	return Config{
		K:          5,
		Threshold:  0.1,
		ExcerptLen: 500,
	}
}

// Source identifies a movie that contributed to an answer.
type Source struct {
	Title string  `json:"title"`
	Year  int     `json:"year"`
	Score float64 `json:"score"`
}

// Answer is a generated response plus the retrieval evidence behind it.
// NoLocalMatch is set when nothing in the index cleared the threshold; in
// that case the model answered from general knowledge, not local data.
type Answer struct {
	Text         string   `json:"text"`
	Sources      []Source `json:"sources,omitempty"`
	NoLocalMatch bool     `json:"no_local_match,omitempty"`
}

// Orchestrator answers questions about indexed movies by retrieving
// relevant records and handing them to an LLM as grounding context.
type Orchestrator struct {
	retriever Retriever
	completer Completer
	config    Config
	logger    *slog.Logger
}

// New creates an Orchestrator. Unset config fields fall back to defaults;
// a Threshold of exactly 0 is valid and disables the score gate, so only
// negative thresholds count as unset.
func New(retriever Retriever, completer Completer, config Config, logger *slog.Logger) *Orchestrator {
	defaults := DefaultConfig()
	if config.K <= 0 {
		config.K = defaults.K
	}
	if config.Threshold < 0 {
		config.Threshold = defaults.Threshold
	}
	if config.ExcerptLen <= 0 {
		config.ExcerptLen = defaults.ExcerptLen
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		retriever: retriever,
		completer: completer,
		config:    config,
		logger:    logger,
	}
}

const systemPrompt = `You are a knowledgeable movie expert assistant. You help users understand movies based on reviews and information aggregated from IMDb, Rotten Tomatoes, and Metacritic.

Guidelines:
- Provide comprehensive, balanced answers based on the provided context
- Cite specific sources when mentioning opinions or ratings
- Distinguish between critic and audience opinions when relevant
- If asked about specific aspects (acting, plot, cinematography), focus on those areas
- Be objective and present different perspectives when they exist
- If the context doesn't contain enough information, say so honestly

Always base your response on the provided context and avoid making up information.`

const noMatchSystemPrompt = `You are a knowledgeable movie expert assistant. The user's question matched nothing in the local movie index, so no reviews or aggregated data are available as context.

Answer from your general knowledge, and say clearly that the answer is not based on locally collected reviews.`

// Ask answers a question using locally indexed movies as context. When
// nothing clears the threshold, the bare question is still forwarded and
// the answer is flagged NoLocalMatch.
func (o *Orchestrator) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question")
	}

	matches, err := o.retriever.Query(ctx, question, o.config.K, o.config.Threshold)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	if len(matches) == 0 {
		o.logger.Info("no matches above threshold", "question", question, "threshold", o.config.Threshold)
		text, err := o.completer.Complete(ctx, noMatchSystemPrompt, question)
		if err != nil {
			return nil, fmt.Errorf("completion failed: %w", err)
		}
		return &Answer{Text: text, NoLocalMatch: true}, nil
	}

	sources := make([]Source, len(matches))
	blocks := make([]string, len(matches))
	for i, m := range matches {
		sources[i] = Source{Title: m.Doc.Title, Year: m.Doc.Year, Score: m.Score}
		blocks[i] = o.contextBlock(m)
	}

	userPrompt := fmt.Sprintf(
		"Based on the following movie reviews and information, please answer this question:\n\nQuestion: %s\n\nContext:\n%s\n\nPlease provide a comprehensive answer based on the reviews and information above.",
		question,
		strings.Join(blocks, "\n\n"),
	)

	text, err := o.completer.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	o.logger.Info("question answered", "question", question, "movies", len(matches))
	return &Answer{Text: text, Sources: sources}, nil
}

// contextBlock formats one matched movie for the prompt: the overview line
// first, then a bounded excerpt of its reviews.
func (o *Orchestrator) contextBlock(m store.Match) string {
	overview := m.Doc.Text
	reviews := ""
	if idx := strings.IndexByte(m.Doc.Text, '\n'); idx >= 0 {
		overview = m.Doc.Text[:idx]
		reviews = strings.TrimSpace(m.Doc.Text[idx+1:])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Movie Overview: %s", overview)
	if reviews != "" {
		if len(reviews) > o.config.ExcerptLen {
			reviews = truncateRunes(reviews, o.config.ExcerptLen) + "..."
		}
		fmt.Fprintf(&b, "\nReviews (%d total): %s", m.Doc.ReviewCount, reviews)
	}
	return b.String()
}

// truncateRunes cuts s to at most n bytes without splitting a UTF-8 rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
