package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mklein/cine-rag/internal/elasticsearch"
	"github.com/mklein/cine-rag/pkg/models"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Backend is the vector index the store writes to.
type Backend interface {
	CreateIndex(ctx context.Context) error
	UpsertDoc(ctx context.Context, doc elasticsearch.Doc) error
	DeleteDoc(ctx context.Context, id string) (bool, error)
	GetDoc(ctx context.Context, id string) (*elasticsearch.Doc, error)
	ListDocs(ctx context.Context, limit int) ([]elasticsearch.Doc, error)
	KNNSearch(ctx context.Context, vector []float32, k int) ([]elasticsearch.Hit, error)
	Count(ctx context.Context) (int, error)
}

// StoreError wraps a failure in a store operation with the operation name.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Match is a retrieval result: the indexed document plus its similarity
// score in [0, 1].
type Match struct {
	Doc   elasticsearch.Doc
	Score float64
}

// Store writes aggregated movie records into a vector index and retrieves
// them by semantic similarity.
type Store struct {
	embedder Embedder
	backend  Backend
	logger   *slog.Logger
}

// New creates a Store over the given embedder and backend.
func New(embedder Embedder, backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		embedder: embedder,
		backend:  backend,
		logger:   logger,
	}
}

// Init ensures the backing index exists.
func (s *Store) Init(ctx context.Context) error {
	if err := s.backend.CreateIndex(ctx); err != nil {
		return &StoreError{Op: "init", Err: err}
	}
	return nil
}

// Upsert embeds a record and writes it to the index, replacing any prior
// version of the same movie. List-valued fields are flattened to joined
// strings so the index only carries scalar metadata.
func (s *Store) Upsert(ctx context.Context, record *models.MovieRecord) error {
	if record == nil || strings.TrimSpace(record.Title) == "" {
		return &StoreError{Op: "upsert", Err: fmt.Errorf("record has no title")}
	}

	text := record.EmbeddingText()
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return &StoreError{Op: "upsert", Err: fmt.Errorf("embedding failed: %w", err)}
	}

	sentiment := record.Sentiment()
	doc := elasticsearch.Doc{
		ID:          record.ID(),
		Title:       record.Title,
		Year:        record.Year,
		Director:    record.Director,
		Cast:        strings.Join(record.Cast, ", "),
		Genres:      strings.Join(record.Genres, ", "),
		Ratings:     record.FlatRatings(),
		Sources:     strings.Join(record.Sources, ", "),
		ReviewCount: sentiment.TotalReviews,
		RatedCount:  sentiment.RatedReviews,
		AvgRating:   sentiment.AverageRating,
		Positive:    sentiment.Positive,
		Neutral:     sentiment.Neutral,
		Negative:    sentiment.Negative,
		Text:        text,
		Embedding:   vector,
		IndexedAt:   time.Now().UTC(),
	}

	if err := s.backend.UpsertDoc(ctx, doc); err != nil {
		return &StoreError{Op: "upsert", Err: err}
	}

	s.logger.Info("movie indexed",
		"id", doc.ID,
		"title", doc.Title,
		"reviews", doc.ReviewCount,
	)
	return nil
}

// Query embeds the query text and returns up to k matches whose score
// meets the threshold, ordered by descending similarity.
func (s *Store) Query(ctx context.Context, text string, k int, threshold float64) ([]Match, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &StoreError{Op: "query", Err: fmt.Errorf("empty query")}
	}
	if k <= 0 {
		k = 5
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: fmt.Errorf("embedding failed: %w", err)}
	}

	hits, err := s.backend.KNNSearch(ctx, vector, k)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}

	matches := make([]Match, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < threshold {
			continue
		}
		matches = append(matches, Match{Doc: hit.Doc, Score: hit.Score})
	}

	s.logger.Debug("query complete",
		"hits", len(hits),
		"above_threshold", len(matches),
		"threshold", threshold,
	)
	return matches, nil
}

// Delete removes a movie from the index by title and year. The bool
// reports whether a document was actually removed.
func (s *Store) Delete(ctx context.Context, title string, year int) (bool, error) {
	id := models.MovieID(title, year)
	removed, err := s.backend.DeleteDoc(ctx, id)
	if err != nil {
		return false, &StoreError{Op: "delete", Err: err}
	}
	return removed, nil
}

// Get fetches an indexed movie by title and year. Returns nil if the
// movie is not indexed.
func (s *Store) Get(ctx context.Context, title string, year int) (*elasticsearch.Doc, error) {
	doc, err := s.backend.GetDoc(ctx, models.MovieID(title, year))
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	return doc, nil
}

// Sentiment returns the stored review-sentiment summary for a movie.
// Returns nil if the movie is not indexed.
func (s *Store) Sentiment(ctx context.Context, title string, year int) (*models.Sentiment, error) {
	doc, err := s.backend.GetDoc(ctx, models.MovieID(title, year))
	if err != nil {
		return nil, &StoreError{Op: "sentiment", Err: err}
	}
	if doc == nil {
		return nil, nil
	}
	return &models.Sentiment{
		TotalReviews:  doc.ReviewCount,
		RatedReviews:  doc.RatedCount,
		AverageRating: doc.AvgRating,
		Positive:      doc.Positive,
		Neutral:       doc.Neutral,
		Negative:      doc.Negative,
	}, nil
}

// List returns up to limit indexed movies ordered by title.
func (s *Store) List(ctx context.Context, limit int) ([]elasticsearch.Doc, error) {
	if limit <= 0 {
		limit = 100
	}
	docs, err := s.backend.ListDocs(ctx, limit)
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	return docs, nil
}

// Count returns the number of indexed movies.
func (s *Store) Count(ctx context.Context) (int, error) {
	n, err := s.backend.Count(ctx)
	if err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return n, nil
}
