package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklein/cine-rag/internal/aggregate"
	"github.com/mklein/cine-rag/internal/scraper"
	"github.com/mklein/cine-rag/internal/storage"
	"github.com/mklein/cine-rag/pkg/models"
)

// Archiver persists raw scraped pages so movies can be re-parsed without
// hitting the source sites again. Satisfied by *storage.Client.
type Archiver interface {
	EnsureBucket(ctx context.Context) error
	PutPage(ctx context.Context, prefix, source, html string) error
	GetPage(ctx context.Context, prefix, source string) (string, error)
	PutManifest(ctx context.Context, prefix string, manifest storage.Manifest) error
	GetManifest(ctx context.Context, prefix string) (*storage.Manifest, error)
	LatestArchive(ctx context.Context, movieID string) (string, error)
	Bucket() string
}

// Indexer writes merged records into the vector index. Satisfied by
// *store.Store.
type Indexer interface {
	Init(ctx context.Context) error
	Upsert(ctx context.Context, record *models.MovieRecord) error
}

// Result holds the outcome of one movie run through the pipeline.
type Result struct {
	MovieID        string
	Title          string
	Year           int
	SourcesScraped []string
	SourcesFailed  []string
	ReviewCount    int
	ArchivePrefix  string // empty when archiving is disabled
	Indexed        bool
	Duration       time.Duration
	Warnings       []string
}

// Pipeline runs the full add flow for a movie: aggregate across sources,
// archive the raw pages, embed and index the merged record.
type Pipeline struct {
	manager *aggregate.Manager
	indexer Indexer
	archive Archiver // nil when archiving disabled
	sources map[string]scraper.Source
	logger  *slog.Logger
}

// New creates a Pipeline. archive may be nil to skip raw-page archiving.
func New(manager *aggregate.Manager, indexer Indexer, archive Archiver, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	sources := make(map[string]scraper.Source)
	for _, src := range manager.Sources() {
		sources[src.Name()] = src
	}
	return &Pipeline{
		manager: manager,
		indexer: indexer,
		archive: archive,
		sources: sources,
		logger:  logger,
	}
}

// Run executes the full pipeline for one movie.
func (p *Pipeline) Run(ctx context.Context, title string, year int) (*Result, error) {
	start := time.Now()

	if err := p.indexer.Init(ctx); err != nil {
		return nil, err
	}

	outcome, err := p.manager.Aggregate(ctx, title, year)
	if err != nil {
		return nil, err
	}

	result := p.resultFromOutcome(outcome)

	if p.archive != nil {
		prefix, err := p.archivePages(ctx, outcome, start)
		if err != nil {
			// Archive failures don't block indexing; the record is in hand.
			p.logger.Warn("archiving failed", "movie", outcome.Record.Title, "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("archive: %v", err))
		} else {
			result.ArchivePrefix = prefix
		}
	}

	if err := p.indexer.Upsert(ctx, outcome.Record); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	result.Indexed = true
	result.Duration = time.Since(start)

	p.logger.Info("pipeline complete",
		"movie", result.Title,
		"sources", len(result.SourcesScraped),
		"reviews", result.ReviewCount,
		"duration", result.Duration,
	)
	return result, nil
}

// Collect runs the scrape-and-archive half of the pipeline without
// indexing. Requires archiving; the record is only reachable through the
// archive afterwards.
func (p *Pipeline) Collect(ctx context.Context, title string, year int) (*Result, error) {
	if p.archive == nil {
		return nil, fmt.Errorf("archiving is not configured")
	}
	start := time.Now()

	outcome, err := p.manager.Aggregate(ctx, title, year)
	if err != nil {
		return nil, err
	}

	result := p.resultFromOutcome(outcome)
	prefix, err := p.archivePages(ctx, outcome, start)
	if err != nil {
		return result, fmt.Errorf("archiving %q: %w", outcome.Record.Title, err)
	}
	result.ArchivePrefix = prefix
	result.Duration = time.Since(start)
	return result, nil
}

// Reingest rebuilds a movie's index entry from its most recent archive,
// re-parsing the stored pages instead of scraping the sites again.
func (p *Pipeline) Reingest(ctx context.Context, title string, year int) (*Result, error) {
	if p.archive == nil {
		return nil, fmt.Errorf("archiving is not configured")
	}

	movieID := models.MovieID(title, year)
	prefix, err := p.archive.LatestArchive(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		return nil, fmt.Errorf("no archive found for %q", title)
	}

	return p.ReingestPrefix(ctx, prefix)
}

// ReingestPrefix parses and indexes the archived pages under one archive
// prefix.
func (p *Pipeline) ReingestPrefix(ctx context.Context, prefix string) (*Result, error) {
	if p.archive == nil {
		return nil, fmt.Errorf("archiving is not configured")
	}
	start := time.Now()

	manifest, err := p.archive.GetManifest(ctx, prefix)
	if err != nil {
		return nil, err
	}

	result := &Result{
		MovieID:       manifest.MovieID,
		Title:         manifest.Title,
		Year:          manifest.Year,
		ArchivePrefix: prefix,
	}

	parts := make(map[string]*models.MovieRecord)
	for sourceName := range manifest.Pages {
		src, ok := p.sources[sourceName]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown source %q in archive", sourceName))
			continue
		}

		html, err := p.archive.GetPage(ctx, prefix, sourceName)
		if err != nil {
			result.SourcesFailed = append(result.SourcesFailed, sourceName)
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", sourceName, err))
			continue
		}

		record, err := src.Parse(html)
		if err != nil {
			result.SourcesFailed = append(result.SourcesFailed, sourceName)
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", sourceName, err))
			continue
		}
		parts[sourceName] = record
	}

	if len(parts) == 0 {
		return result, fmt.Errorf("no archived pages could be parsed for %q", manifest.Title)
	}

	record := models.MergeRecords(parts)
	if record.Title == "" {
		record.Title = manifest.Title
	}
	if record.Year == 0 {
		record.Year = manifest.Year
	}

	result.Title = record.Title
	result.Year = record.Year
	result.ReviewCount = len(record.Reviews)
	result.SourcesScraped = record.Sources

	if err := p.indexer.Init(ctx); err != nil {
		return result, err
	}
	if err := p.indexer.Upsert(ctx, record); err != nil {
		result.Duration = time.Since(start)
		return result, err
	}
	result.Indexed = true
	result.Duration = time.Since(start)

	p.logger.Info("reingest complete", "movie", record.Title, "prefix", prefix)
	return result, nil
}

func (p *Pipeline) resultFromOutcome(outcome *aggregate.Outcome) *Result {
	result := &Result{
		MovieID:        outcome.Record.ID(),
		Title:          outcome.Record.Title,
		Year:           outcome.Record.Year,
		SourcesScraped: outcome.Record.Sources,
		ReviewCount:    len(outcome.Record.Reviews),
	}
	for name, err := range outcome.Failed {
		result.SourcesFailed = append(result.SourcesFailed, name)
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", name, err))
	}
	return result
}

// archivePages writes each source's raw page plus a manifest under a
// timestamped prefix.
func (p *Pipeline) archivePages(ctx context.Context, outcome *aggregate.Outcome, ts time.Time) (string, error) {
	if err := p.archive.EnsureBucket(ctx); err != nil {
		return "", err
	}

	prefix := storage.ArchivePrefix(outcome.Record.ID(), ts)
	manifest := storage.Manifest{
		MovieID:    outcome.Record.ID(),
		Title:      outcome.Record.Title,
		Year:       outcome.Record.Year,
		ArchivedAt: ts.UTC().Format(time.RFC3339),
		Pages:      make(map[string]string),
	}

	for sourceName, page := range outcome.Pages {
		if page.PageHTML == "" {
			continue
		}
		if err := p.archive.PutPage(ctx, prefix, sourceName, page.PageHTML); err != nil {
			return "", fmt.Errorf("put page %s: %w", sourceName, err)
		}
		manifest.Pages[sourceName] = page.PageURL
	}

	if err := p.archive.PutManifest(ctx, prefix, manifest); err != nil {
		return "", fmt.Errorf("put manifest: %w", err)
	}

	return prefix, nil
}
