package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mklein/cine-rag/pkg/models"
)

// ErrNotFound signals that a source has no entry for the requested movie.
// It is a data condition, not a transport fault, and is non-fatal to
// aggregation.
var ErrNotFound = errors.New("movie not found")

// SourceError wraps a failure from one source so the aggregation layer can
// report which site failed and why.
type SourceError struct {
	Source string
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Config holds the per-source scraping policy.
type Config struct {
	Delay      time.Duration // fixed delay between retry attempts
	Timeout    time.Duration // per-request timeout
	MaxRetries int           // attempt budget per request
	UserAgent  string
	MaxReviews int // cap on review excerpts per source
}

// Defaults for any zero-valued Config field.
const (
	DefaultDelay      = 1 * time.Second
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultMaxReviews = 30
	DefaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func (c Config) withDefaults() Config {
	if c.Delay == 0 {
		c.Delay = DefaultDelay
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.MaxReviews == 0 {
		c.MaxReviews = DefaultMaxReviews
	}
	return c
}

// Result is one source's contribution for a movie: the partial record plus
// the raw detail page it was parsed from, kept for archiving.
type Result struct {
	Record   *models.MovieRecord
	PageURL  string
	PageHTML string
}

// Source is the capability interface every review site implements.
// Implementations hold no per-call state and are safe for concurrent use
// across different titles. year 0 means unknown.
type Source interface {
	Name() string
	Fetch(ctx context.Context, title string, year int) (*Result, error)
	// Parse extracts the partial record from an already-fetched detail
	// page, so archived pages can be re-indexed without re-fetching.
	Parse(pageHTML string) (*models.MovieRecord, error)
}

// titleMatches reports whether a search-result label refers to the wanted
// movie: normalized containment either way, with leading articles stripped.
func titleMatches(want, got string) bool {
	w := stripArticle(models.NormalizeTitle(want))
	g := stripArticle(models.NormalizeTitle(got))
	if w == "" || g == "" {
		return false
	}
	return strings.Contains(g, w) || strings.Contains(w, g)
}

func stripArticle(title string) string {
	for _, article := range []string{"the ", "a ", "an "} {
		if strings.HasPrefix(title, article) {
			return title[len(article):]
		}
	}
	return title
}

// yearMatches allows a two-year tolerance, covering festival vs wide-release
// year discrepancies between sites. Zero on either side matches anything.
func yearMatches(want, got int) bool {
	if want == 0 || got == 0 {
		return true
	}
	diff := want - got
	if diff < 0 {
		diff = -diff
	}
	return diff <= 2
}
