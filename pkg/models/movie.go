package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// SourcePriority is the fixed merge order for the supported review sites.
// Earlier sources win field conflicts; review and rating merges preserve
// this order so merged output is reproducible.
var SourcePriority = []string{"imdb", "rottentomatoes", "metacritic"}

// Review is a single review excerpt from one source.
type Review struct {
	Source  string  `json:"source"`
	Author  string  `json:"author,omitempty"`
	Content string  `json:"content"`
	Rating  float64 `json:"rating,omitempty"` // 0-10 scale, 0 means unrated
	Type    string  `json:"type,omitempty"`   // "user" or "critic"
}

// MovieRecord is the canonical aggregated record for one movie.
// A record from a single scraper is a partial record; the scraper manager
// merges partials into the final record before indexing.
type MovieRecord struct {
	Title     string             `json:"title"`
	Year      int                `json:"year,omitempty"`
	Director  string             `json:"director,omitempty"`
	Cast      []string           `json:"cast,omitempty"`
	Genres    []string           `json:"genres,omitempty"`
	Plot      string             `json:"plot,omitempty"`
	Ratings   map[string]float64 `json:"ratings,omitempty"` // source -> 0-10 score
	Reviews   []Review           `json:"reviews,omitempty"`
	Sources   []string           `json:"sources,omitempty"` // sources that contributed, in priority order
	ScrapedAt time.Time          `json:"scraped_at"`
}

// NormalizeTitle produces the case- and whitespace-insensitive form of a
// title used for identity.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// MovieID creates a deterministic record ID from a title and year.
// The ID is the first 16 hex chars of SHA-256 over "title|year", so
// re-scraping the same movie overwrites the previously indexed document.
func MovieID(title string, year int) string {
	key := fmt.Sprintf("%s|%d", NormalizeTitle(title), year)
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])[:16]
}

// ID returns the record's identity key.
func (r *MovieRecord) ID() string {
	return MovieID(r.Title, r.Year)
}

// HasSource reports whether the named source contributed to this record.
func (r *MovieRecord) HasSource(source string) bool {
	for _, s := range r.Sources {
		if s == source {
			return true
		}
	}
	return false
}

// MergeRecords combines per-source partial records into one canonical record.
// Sources are visited in SourcePriority order: the first non-empty value wins
// scalar fields, cast entries union preserving that order, and ratings and
// reviews accumulate across all sources. Unknown source names merge last, in
// lexical order. The merge is a pure function: merging the same partials
// twice yields an identical record.
func MergeRecords(parts map[string]*MovieRecord) *MovieRecord {
	merged := &MovieRecord{
		Ratings: make(map[string]float64),
	}

	seenCast := make(map[string]bool)

	for _, source := range mergeOrder(parts) {
		part := parts[source]
		if part == nil {
			continue
		}

		if merged.Title == "" {
			merged.Title = part.Title
		}
		if merged.Year == 0 {
			merged.Year = part.Year
		}
		if merged.Director == "" {
			merged.Director = part.Director
		}
		if merged.Plot == "" {
			merged.Plot = part.Plot
		}
		if len(merged.Genres) == 0 {
			merged.Genres = append([]string(nil), part.Genres...)
		}

		for _, name := range part.Cast {
			if name == "" || seenCast[name] {
				continue
			}
			seenCast[name] = true
			merged.Cast = append(merged.Cast, name)
		}

		for src, score := range part.Ratings {
			merged.Ratings[src] = score
		}

		merged.Reviews = append(merged.Reviews, part.Reviews...)
		merged.Sources = append(merged.Sources, source)

		if part.ScrapedAt.After(merged.ScrapedAt) {
			merged.ScrapedAt = part.ScrapedAt
		}
	}

	return merged
}

// mergeOrder returns the sources present in parts, priority sources first,
// then any remaining sources in lexical order.
func mergeOrder(parts map[string]*MovieRecord) []string {
	var order []string
	known := make(map[string]bool)
	for _, source := range SourcePriority {
		known[source] = true
		if _, ok := parts[source]; ok {
			order = append(order, source)
		}
	}

	var extra []string
	for source := range parts {
		if !known[source] {
			extra = append(extra, source)
		}
	}
	sort.Strings(extra)

	return append(order, extra...)
}

// EmbeddingText renders the record into the deterministic text that gets
// embedded: one overview line, then review excerpts grouped by source in
// priority order. Two identical records always produce identical text, which
// keeps re-indexing idempotent.
func (r *MovieRecord) EmbeddingText() string {
	var b strings.Builder

	b.WriteString("Movie: " + r.Title)
	if r.Year != 0 {
		fmt.Fprintf(&b, " | Year: %d", r.Year)
	}
	if r.Director != "" {
		b.WriteString(" | Director: " + r.Director)
	}
	if len(r.Genres) > 0 {
		b.WriteString(" | Genres: " + strings.Join(r.Genres, ", "))
	}
	if len(r.Cast) > 0 {
		cast := r.Cast
		if len(cast) > 5 {
			cast = cast[:5]
		}
		b.WriteString(" | Cast: " + strings.Join(cast, ", "))
	}
	if r.Plot != "" {
		b.WriteString(" | Plot: " + r.Plot)
	}
	if len(r.Ratings) > 0 {
		b.WriteString(" | Ratings: " + r.FlatRatings())
	}

	for _, source := range reviewSourceOrder(r.Reviews) {
		for _, review := range r.Reviews {
			if review.Source != source || review.Content == "" {
				continue
			}
			b.WriteString("\nReview (" + source + "): " + review.Content)
		}
	}

	return b.String()
}

// reviewSourceOrder lists the distinct review sources, priority sources
// first, then the rest in lexical order.
func reviewSourceOrder(reviews []Review) []string {
	present := make(map[string]bool)
	for _, review := range reviews {
		present[review.Source] = true
	}

	var order []string
	for _, source := range SourcePriority {
		if present[source] {
			order = append(order, source)
			delete(present, source)
		}
	}

	var extra []string
	for source := range present {
		extra = append(extra, source)
	}
	sort.Strings(extra)

	return append(order, extra...)
}

// FlatRatings flattens the ratings map to "source:score" pairs in a fixed
// order, suitable for scalar store metadata.
func (r *MovieRecord) FlatRatings() string {
	if len(r.Ratings) == 0 {
		return ""
	}

	sources := make([]string, 0, len(r.Ratings))
	for source := range r.Ratings {
		sources = append(sources, source)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sourceRank(sources[i]) < sourceRank(sources[j]) ||
			(sourceRank(sources[i]) == sourceRank(sources[j]) && sources[i] < sources[j])
	})

	pairs := make([]string, 0, len(sources))
	for _, source := range sources {
		pairs = append(pairs, fmt.Sprintf("%s:%.1f", source, r.Ratings[source]))
	}
	return strings.Join(pairs, "; ")
}

// Sentiment summarizes a movie's reviews by rating bucket. Reviews rated
// 7 or higher count as positive, 4 or lower as negative, everything in
// between as neutral. Unrated reviews count as neutral and are excluded
// from the average.
type Sentiment struct {
	TotalReviews  int     `json:"total_reviews"`
	RatedReviews  int     `json:"rated_reviews"`
	AverageRating float64 `json:"average_rating"`
	Positive      int     `json:"positive"`
	Neutral       int     `json:"neutral"`
	Negative      int     `json:"negative"`
}

// Sentiment buckets the record's reviews by rating.
func (r *MovieRecord) Sentiment() Sentiment {
	var s Sentiment
	var total float64

	for _, review := range r.Reviews {
		s.TotalReviews++
		if review.Rating <= 0 {
			s.Neutral++
			continue
		}

		s.RatedReviews++
		total += review.Rating
		switch {
		case review.Rating >= 7:
			s.Positive++
		case review.Rating <= 4:
			s.Negative++
		default:
			s.Neutral++
		}
	}

	if s.RatedReviews > 0 {
		s.AverageRating = total / float64(s.RatedReviews)
	}
	return s
}

// Percentages returns the positive/neutral/negative shares of all reviews,
// rounded to one decimal place. Zero reviews yields zero shares.
func (s Sentiment) Percentages() (positive, neutral, negative float64) {
	if s.TotalReviews == 0 {
		return 0, 0, 0
	}
	pct := func(n int) float64 {
		return math.Round(float64(n)/float64(s.TotalReviews)*1000) / 10
	}
	return pct(s.Positive), pct(s.Neutral), pct(s.Negative)
}

func sourceRank(source string) int {
	for i, s := range SourcePriority {
		if s == source {
			return i
		}
	}
	return len(SourcePriority)
}
