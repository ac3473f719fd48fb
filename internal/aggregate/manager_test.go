package aggregate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/mklein/cine-rag/internal/scraper"
	"github.com/mklein/cine-rag/pkg/models"
)

// fakeSource implements scraper.Source with canned behavior.
type fakeSource struct {
	name       string
	record     *models.MovieRecord
	err        error
	calls      atomic.Int32
	block      chan struct{} // if set, Fetch for blockTitle waits for close or ctx
	blockTitle string
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(ctx context.Context, title string, year int) (*scraper.Result, error) {
	f.calls.Add(1)
	if f.block != nil && title == f.blockTitle {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.Result{
		Record:   f.record,
		PageURL:  "https://example.com/" + f.name,
		PageHTML: "<html></html>",
	}, nil
}

func (f *fakeSource) Parse(pageHTML string) (*models.MovieRecord, error) {
	return f.record, nil
}

func matrixPartial(source string) *models.MovieRecord {
	return &models.MovieRecord{
		Title:   "The Matrix",
		Year:    1999,
		Ratings: map[string]float64{source: 8.0},
		Reviews: []models.Review{{Source: source, Content: "Great."}},
	}
}

func TestManager_Aggregate_AllSucceed(t *testing.T) {
	m := NewManager(
		&fakeSource{name: "imdb", record: matrixPartial("imdb")},
		&fakeSource{name: "rottentomatoes", record: matrixPartial("rottentomatoes")},
		&fakeSource{name: "metacritic", record: matrixPartial("metacritic")},
	)

	outcome, err := m.Aggregate(t.Context(), "The Matrix", 1999)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	record := outcome.Record
	if len(record.Sources) != 3 {
		t.Errorf("Sources = %v, want all three", record.Sources)
	}
	if len(record.Reviews) != 3 {
		t.Errorf("Reviews = %d, want 3", len(record.Reviews))
	}
	if len(outcome.Pages) != 3 {
		t.Errorf("Pages = %d, want 3", len(outcome.Pages))
	}
	if len(outcome.Failed) != 0 {
		t.Errorf("Failed = %v, want none", outcome.Failed)
	}
}

func TestManager_Aggregate_PartialFailure(t *testing.T) {
	m := NewManager(
		&fakeSource{name: "imdb", record: matrixPartial("imdb")},
		&fakeSource{name: "rottentomatoes", err: scraper.ErrNotFound},
		&fakeSource{name: "metacritic", record: matrixPartial("metacritic")},
	)

	outcome, err := m.Aggregate(t.Context(), "The Matrix", 1999)
	if err != nil {
		t.Fatalf("Aggregate() error = %v (partial failure must not abort)", err)
	}

	record := outcome.Record
	if !record.HasSource("imdb") || !record.HasSource("metacritic") {
		t.Errorf("surviving sources missing: %v", record.Sources)
	}
	if record.HasSource("rottentomatoes") {
		t.Error("failed source must not be flagged present")
	}

	cause, ok := outcome.Failed["rottentomatoes"]
	if !ok {
		t.Fatal("failed source should be reported in outcome")
	}
	var srcErr *scraper.SourceError
	if !errors.As(cause, &srcErr) || srcErr.Source != "rottentomatoes" {
		t.Errorf("cause = %v, want SourceError naming rottentomatoes", cause)
	}
}

func TestManager_Aggregate_AllFail(t *testing.T) {
	m := NewManager(
		&fakeSource{name: "imdb", err: errors.New("HTTP 503")},
		&fakeSource{name: "rottentomatoes", err: scraper.ErrNotFound},
		&fakeSource{name: "metacritic", err: errors.New("timeout")},
	)

	_, err := m.Aggregate(t.Context(), "The Matrix", 1999)

	var aggErr *AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("error = %v, want AggregationError", err)
	}
	if len(aggErr.Failures) != 3 {
		t.Errorf("Failures = %d, want 3", len(aggErr.Failures))
	}
	for _, source := range []string{"imdb", "rottentomatoes", "metacritic"} {
		if !strings.Contains(aggErr.Error(), source) {
			t.Errorf("error message should name %s: %s", source, aggErr.Error())
		}
	}
}

func TestManager_Aggregate_EmptyTitle(t *testing.T) {
	m := NewManager(&fakeSource{name: "imdb", record: matrixPartial("imdb")})
	if _, err := m.Aggregate(t.Context(), "", 0); err == nil {
		t.Error("empty title must be rejected")
	}
}

func TestManager_Aggregate_DeterministicMerge(t *testing.T) {
	build := func() *Manager {
		return NewManager(
			&fakeSource{name: "metacritic", record: matrixPartial("metacritic")},
			&fakeSource{name: "imdb", record: matrixPartial("imdb")},
		)
	}

	first, err := build().Aggregate(t.Context(), "The Matrix", 1999)
	if err != nil {
		t.Fatal(err)
	}
	second, err := build().Aggregate(t.Context(), "The Matrix", 1999)
	if err != nil {
		t.Fatal(err)
	}

	if first.Record.EmbeddingText() != second.Record.EmbeddingText() {
		t.Error("merge output must not depend on completion order")
	}
}

func TestManager_Aggregate_CancellationIsolated(t *testing.T) {
	blockA := make(chan struct{})
	defer close(blockA)
	slowSource := &fakeSource{
		name:       "imdb",
		record:     matrixPartial("imdb"),
		block:      blockA,
		blockTitle: "Blade Runner",
	}
	m := NewManager(slowSource)

	ctxA, cancelA := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() {
		_, err := m.Aggregate(ctxA, "Blade Runner", 1982)
		done <- err
	}()

	cancelA()
	if err := <-done; !errors.As(err, new(*AggregationError)) {
		t.Errorf("cancelled aggregation error = %v, want AggregationError wrapping ctx error", err)
	}

	// A different title is unaffected by the cancellation above.
	outcome, err := m.Aggregate(t.Context(), "Alien", 1979)
	if err != nil {
		t.Fatalf("independent title failed: %v", err)
	}
	if outcome.Record.Title != "The Matrix" { // fakeSource always returns its canned record
		t.Errorf("unexpected record: %+v", outcome.Record)
	}
}
