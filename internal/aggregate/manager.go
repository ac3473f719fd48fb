// Package aggregate fans a title lookup out to every configured review-site
// scraper and merges the per-source partial records into one canonical
// MovieRecord.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/mklein/cine-rag/internal/scraper"
	"github.com/mklein/cine-rag/pkg/models"
)

// AggregationError reports that every configured source failed for a title.
type AggregationError struct {
	Title    string
	Failures map[string]error // source name -> cause
}

func (e *AggregationError) Error() string {
	sources := make([]string, 0, len(e.Failures))
	for source := range e.Failures {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	parts := make([]string, 0, len(sources))
	for _, source := range sources {
		parts = append(parts, fmt.Sprintf("%s: %v", source, e.Failures[source]))
	}
	return fmt.Sprintf("all sources failed for %q: %s", e.Title, strings.Join(parts, "; "))
}

// Outcome is the result of one aggregation: the merged record, the raw pages
// each source contributed (for archiving), and the sources that failed.
type Outcome struct {
	Record *models.MovieRecord
	Pages  map[string]*scraper.Result // source name -> raw detail page
	Failed map[string]error           // source name -> cause (may be empty)
}

// Manager coordinates the fixed set of site scrapers.
type Manager struct {
	sources []scraper.Source
	sf      singleflight.Group // collapses concurrent lookups of the same identity
}

// NewManager creates a Manager over the given sources. Source order does not
// matter; merge order is fixed by models.SourcePriority.
func NewManager(sources ...scraper.Source) *Manager {
	return &Manager{sources: sources}
}

// DefaultSources builds the three supported site scrapers with a shared
// policy.
func DefaultSources(config scraper.Config) []scraper.Source {
	return []scraper.Source{
		scraper.NewIMDB(config),
		scraper.NewRottenTomatoes(config),
		scraper.NewMetacritic(config),
	}
}

// Sources returns the configured sources in registration order.
func (m *Manager) Sources() []scraper.Source {
	return m.sources
}

// Aggregate scrapes the title from every source concurrently and merges the
// partial records. Failures from a subset of sources degrade coverage but
// never abort the lookup; only when every source fails does Aggregate return
// an AggregationError. All scrapes complete (or exhaust their retry budget)
// before the merge runs. Concurrent calls for the same (title, year) share
// one in-flight aggregation.
func (m *Manager) Aggregate(ctx context.Context, title string, year int) (*Outcome, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title must not be empty")
	}
	if len(m.sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}

	key := models.MovieID(title, year)
	v, err, _ := m.sf.Do(key, func() (any, error) {
		return m.aggregate(ctx, title, year)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Outcome), nil
}

func (m *Manager) aggregate(ctx context.Context, title string, year int) (*Outcome, error) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		parts  = make(map[string]*models.MovieRecord)
		pages  = make(map[string]*scraper.Result)
		failed = make(map[string]error)
	)

	// Join barrier: every source finishes or exhausts its retries before
	// merging. No retries happen at this layer.
	for _, source := range m.sources {
		wg.Add(1)
		go func(src scraper.Source) {
			defer wg.Done()

			result, err := src.Fetch(ctx, title, year)
			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				slog.Warn("source failed", "source", src.Name(), "title", title, "error", err)
				failed[src.Name()] = &scraper.SourceError{Source: src.Name(), Err: err}
				return
			}

			slog.Debug("source scraped",
				"source", src.Name(), "title", title, "reviews", len(result.Record.Reviews))
			parts[src.Name()] = result.Record
			pages[src.Name()] = result
		}(source)
	}
	wg.Wait()

	if len(parts) == 0 {
		return nil, &AggregationError{Title: title, Failures: failed}
	}

	record := models.MergeRecords(parts)
	slog.Info("aggregation complete",
		"title", record.Title,
		"sources", len(parts),
		"failed", len(failed),
		"reviews", len(record.Reviews))

	return &Outcome{Record: record, Pages: pages, Failed: failed}, nil
}
