package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// Config holds Elasticsearch client configuration.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	Dims      int // embedding dimensions, defaults to 1536
}

// Doc is the indexed representation of a movie. List-valued movie fields
// are flattened to scalar strings before indexing; the full record lives
// in the archive, not here.
type Doc struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Year        int       `json:"year"`
	Director    string    `json:"director,omitempty"`
	Cast        string    `json:"cast,omitempty"`
	Genres      string    `json:"genres,omitempty"`
	Ratings     string    `json:"ratings,omitempty"`
	Sources     string    `json:"sources,omitempty"`
	ReviewCount int       `json:"review_count"`
	RatedCount  int       `json:"rated_count"`
	AvgRating   float64   `json:"avg_rating"`
	Positive    int       `json:"positive"`
	Neutral     int       `json:"neutral"`
	Negative    int       `json:"negative"`
	Text        string    `json:"text"`
	Embedding   []float32 `json:"embedding,omitempty"`
	IndexedAt   time.Time `json:"indexed_at"`
}

// Hit is a single kNN search result with its similarity score.
// Scores follow the cosine convention (1 + cos) / 2, so they fall in [0, 1].
type Hit struct {
	Doc   Doc
	Score float64
}

// Client wraps the Elasticsearch client with movie index operations.
type Client struct {
	es    *elasticsearch.Client
	index string
	dims  int
}

// New creates a new Elasticsearch client.
func New(config Config) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	dims := config.Dims
	if dims == 0 {
		dims = 1536
	}

	return &Client{
		es:    es,
		index: config.Index,
		dims:  dims,
	}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) bool {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return !res.IsError()
}

// indexMapping defines the movie index mapping. The dense_vector dims are
// filled in from the embedding model's output size.
const indexMapping = `{
	"mappings": {
		"properties": {
			"id": { "type": "keyword" },
			"title": {
				"type": "text",
				"fields": { "raw": { "type": "keyword" } }
			},
			"year": { "type": "integer" },
			"director": { "type": "text" },
			"cast": { "type": "text" },
			"genres": { "type": "text" },
			"ratings": { "type": "keyword" },
			"sources": { "type": "keyword" },
			"review_count": { "type": "integer" },
			"rated_count": { "type": "integer" },
			"avg_rating": { "type": "float" },
			"positive": { "type": "integer" },
			"neutral": { "type": "integer" },
			"negative": { "type": "integer" },
			"text": { "type": "text", "analyzer": "english" },
			"indexed_at": { "type": "date" },
			"embedding": {
				"type": "dense_vector",
				"dims": %d,
				"index": true,
				"similarity": "cosine"
			}
		}
	}
}`

// CreateIndex creates the index with proper mapping. Idempotent.
func (c *Client) CreateIndex(ctx context.Context) error {
	res, err := c.es.Indices.Exists([]string{c.index}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to check index: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}

	mapping := fmt.Sprintf(indexMapping, c.dims)
	res, err = c.es.Indices.Create(
		c.index,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(bytes.NewReader([]byte(mapping))),
	)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error creating index: %s", res.String())
	}

	return nil
}

// DeleteIndex removes the index (for testing/cleanup).
func (c *Client) DeleteIndex(ctx context.Context) error {
	res, err := c.es.Indices.Delete([]string{c.index}, c.es.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// UpsertDoc indexes a movie document, replacing any existing document with
// the same ID.
func (c *Client) UpsertDoc(ctx context.Context, doc Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	res, err := c.es.Index(
		c.index,
		bytes.NewReader(data),
		c.es.Index.WithContext(ctx),
		c.es.Index.WithDocumentID(doc.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document (status %d): %s", res.StatusCode, res.String())
	}

	return nil
}

// DeleteDoc removes a document by ID. Deleting a missing document is not
// an error; the bool reports whether anything was removed.
func (c *Client) DeleteDoc(ctx context.Context, id string) (bool, error) {
	res, err := c.es.Delete(
		c.index,
		id,
		c.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return false, nil
	}

	if res.IsError() {
		return false, fmt.Errorf("error deleting document: %s", res.String())
	}

	return true, nil
}

// Refresh forces an index refresh (useful for testing).
func (c *Client) Refresh(ctx context.Context) error {
	res, err := c.es.Indices.Refresh(
		c.es.Indices.Refresh.WithContext(ctx),
		c.es.Indices.Refresh.WithIndex(c.index),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

// searchResponse represents ES search response structure.
type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64 `json:"_score"`
			Source Doc     `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// KNNSearch finds the k nearest documents to the query vector by cosine
// similarity. Results come back ordered by descending score; threshold
// filtering happens at the caller, not here.
func (c *Client) KNNSearch(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	numCandidates := k * 4
	if numCandidates < 10 {
		numCandidates = 10
	}

	searchQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": numCandidates,
		},
		"size": k,
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("knn search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("knn search error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hits := make([]Hit, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		hits[i] = Hit{Doc: hit.Source, Score: hit.Score}
	}

	return hits, nil
}

// getResponse represents ES get response structure.
type getResponse struct {
	Found  bool `json:"found"`
	Source Doc  `json:"_source"`
}

// GetDoc retrieves a document by ID. Returns nil if not found.
func (c *Client) GetDoc(ctx context.Context, id string) (*Doc, error) {
	res, err := c.es.Get(
		c.index,
		id,
		c.es.Get.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, nil
	}

	if res.IsError() {
		return nil, fmt.Errorf("get error: %s", res.String())
	}

	var gr getResponse
	if err := json.NewDecoder(res.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !gr.Found {
		return nil, nil
	}

	return &gr.Source, nil
}

// ListDocs returns up to limit documents ordered by title.
func (c *Client) ListDocs(ctx context.Context, limit int) ([]Doc, error) {
	searchQuery := map[string]interface{}{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
		"sort": []map[string]interface{}{
			{"title.raw": map[string]interface{}{"order": "asc"}},
		},
		"size": limit,
	}

	data, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("list error: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	docs := make([]Doc, len(sr.Hits.Hits))
	for i, hit := range sr.Hits.Hits {
		docs[i] = hit.Source
	}

	return docs, nil
}

// Count returns the number of documents in the index.
func (c *Client) Count(ctx context.Context) (int, error) {
	res, err := c.es.Count(
		c.es.Count.WithContext(ctx),
		c.es.Count.WithIndex(c.index),
	)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("count error: %s", res.String())
	}

	var cr struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&cr); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	return cr.Count, nil
}
