package events

import "time"

// AggregationCompleteEvent is sent when all source scrapes for a movie
// finished and the raw pages were archived.
type AggregationCompleteEvent struct {
	Bucket        string    // S3 bucket name (e.g., "cine-rag")
	Prefix        string    // archive prefix (e.g., "movies/a1b2c3d4/2025-01-03T10-00-00")
	MovieID       string    // deterministic movie ID
	Title         string    // canonical title from the merged record
	Year          int       // release year, 0 if unknown
	Sources       []string  // sources that contributed
	FailedSources []string  // sources that errored, for the report
	ReviewCount   int       // reviews across all sources
	Timestamp     time.Time // when aggregation completed
}

// IndexCompleteEvent is sent when a movie record was embedded and written
// to the vector index.
type IndexCompleteEvent struct {
	MovieID  string        // deterministic movie ID
	Title    string        // indexed title
	Duration time.Duration // how long embedding and indexing took
	Errors   []string      // any errors encountered (non-fatal)
}
