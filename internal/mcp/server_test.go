package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/mklein/cine-rag/internal/elasticsearch"
	"github.com/mklein/cine-rag/internal/rag"
	"github.com/mklein/cine-rag/internal/store"
	"github.com/mklein/cine-rag/pkg/models"
)

type fakeSearcher struct {
	matches   []store.Match
	docs      []elasticsearch.Doc
	sentiment *models.Sentiment
	err       error
	gotQuery  string
	gotK      int
	gotThresh float64
	gotTitle  string
	gotYear   int
}

func (f *fakeSearcher) Query(ctx context.Context, text string, k int, threshold float64) ([]store.Match, error) {
	f.gotQuery = text
	f.gotK = k
	f.gotThresh = threshold
	return f.matches, f.err
}

func (f *fakeSearcher) List(ctx context.Context, limit int) ([]elasticsearch.Doc, error) {
	return f.docs, f.err
}

func (f *fakeSearcher) Sentiment(ctx context.Context, title string, year int) (*models.Sentiment, error) {
	f.gotTitle = title
	f.gotYear = year
	return f.sentiment, f.err
}

type fakeAsker struct {
	answer *rag.Answer
	err    error
}

func (f *fakeAsker) Ask(ctx context.Context, question string) (*rag.Answer, error) {
	return f.answer, f.err
}

func TestServer_Creation(t *testing.T) {
	s := NewServer(Config{Name: "cine-rag", Version: "1.0.0"}, &fakeSearcher{}, &fakeAsker{})

	if s == nil {
		t.Fatal("NewServer() returned nil")
	}
	if s.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}
	if s.config.K != 5 || s.config.Threshold != 0.1 {
		t.Errorf("defaults = k:%d threshold:%v", s.config.K, s.config.Threshold)
	}
}

func TestServer_HandleSearch(t *testing.T) {
	searcher := &fakeSearcher{
		matches: []store.Match{
			{
				Doc: elasticsearch.Doc{
					Title:       "The Matrix",
					Year:        1999,
					Genres:      "Action, Sci-Fi",
					Ratings:     "imdb:8.7",
					ReviewCount: 3,
				},
				Score: 0.88,
			},
		},
	}
	s := NewServer(Config{Name: "cine-rag", Version: "1.0.0"}, searcher, &fakeAsker{})

	summaries, err := s.handleSearch(context.Background(), "simulated reality", 5, 0.1)
	if err != nil {
		t.Fatalf("handleSearch() error = %v", err)
	}

	if len(summaries) != 1 {
		t.Fatalf("got %d summaries, want 1", len(summaries))
	}
	got := summaries[0]
	if got.Title != "The Matrix" || got.Year != 1999 {
		t.Errorf("summary identity = %q/%d", got.Title, got.Year)
	}
	if got.Score != 0.88 {
		t.Errorf("Score = %v, want 0.88", got.Score)
	}
	if got.Ratings != "imdb:8.7" {
		t.Errorf("Ratings = %q", got.Ratings)
	}
	if searcher.gotQuery != "simulated reality" || searcher.gotK != 5 || searcher.gotThresh != 0.1 {
		t.Errorf("search params = %q k:%d threshold:%v",
			searcher.gotQuery, searcher.gotK, searcher.gotThresh)
	}
}

func TestServer_HandleSearchError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index down")}
	s := NewServer(Config{Name: "cine-rag", Version: "1.0.0"}, searcher, &fakeAsker{})

	if _, err := s.handleSearch(context.Background(), "q", 5, 0.1); err == nil {
		t.Error("expected error when searcher fails")
	}
}

func TestServer_HandleList(t *testing.T) {
	searcher := &fakeSearcher{
		docs: []elasticsearch.Doc{
			{Title: "Alien", Year: 1979, ReviewCount: 10},
			{Title: "Blade Runner", Year: 1982, ReviewCount: 7},
		},
	}
	s := NewServer(Config{Name: "cine-rag", Version: "1.0.0"}, searcher, &fakeAsker{})

	summaries, err := s.handleList(context.Background(), 100)
	if err != nil {
		t.Fatalf("handleList() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(summaries))
	}
	if summaries[0].Title != "Alien" || summaries[1].Title != "Blade Runner" {
		t.Errorf("titles = %q, %q", summaries[0].Title, summaries[1].Title)
	}
	if summaries[0].Score != 0 {
		t.Errorf("list results should not carry scores, got %v", summaries[0].Score)
	}
}

func TestServer_HandleSentiment(t *testing.T) {
	searcher := &fakeSearcher{
		sentiment: &models.Sentiment{
			TotalReviews:  10,
			RatedReviews:  8,
			AverageRating: 7.25,
			Positive:      6,
			Neutral:       3,
			Negative:      1,
		},
	}
	s := NewServer(Config{Name: "cine-rag", Version: "1.0.0"}, searcher, &fakeAsker{})

	sentiment, err := s.handleSentiment(context.Background(), "The Matrix", 1999)
	if err != nil {
		t.Fatalf("handleSentiment() error = %v", err)
	}
	if sentiment == nil {
		t.Fatal("handleSentiment() returned nil")
	}
	if searcher.gotTitle != "The Matrix" || searcher.gotYear != 1999 {
		t.Errorf("lookup = %q/%d", searcher.gotTitle, searcher.gotYear)
	}
	if sentiment.Positive != 6 || sentiment.Negative != 1 {
		t.Errorf("distribution = +%d/-%d", sentiment.Positive, sentiment.Negative)
	}
	if sentiment.AverageRating != 7.25 {
		t.Errorf("AverageRating = %v", sentiment.AverageRating)
	}
}

func TestServer_HandleSentimentNotIndexed(t *testing.T) {
	s := NewServer(Config{Name: "cine-rag", Version: "1.0.0"}, &fakeSearcher{}, &fakeAsker{})

	sentiment, err := s.handleSentiment(context.Background(), "Unknown", 0)
	if err != nil {
		t.Fatalf("handleSentiment() error = %v", err)
	}
	if sentiment != nil {
		t.Errorf("sentiment = %+v, want nil for unindexed movie", sentiment)
	}
}
