package elasticsearch

import (
	"context"
	"os"
	"testing"
	"time"
)

func skipIfNoES(t *testing.T) {
	if os.Getenv("SKIP_ES_TESTS") == "1" {
		t.Skip("Skipping ES tests (SKIP_ES_TESTS=1)")
	}

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "test-skip-check",
	})
	if err != nil {
		t.Skipf("Skipping ES tests: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if !client.Ping(ctx) {
		t.Skip("Skipping ES tests: Elasticsearch not available")
	}
}

// testVector builds a unit-length vector with the given dominant axis, so
// cosine similarity between different axes is deterministic.
func testVector(dims, axis int) []float32 {
	v := make([]float32, dims)
	v[axis] = 1
	return v
}

func TestClient_Connect(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "cine-rag-test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if !client.Ping(ctx) {
		t.Error("Ping() should return true for running ES")
	}
}

func TestClient_CreateIndex(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "cine-rag-test-create",
		Dims:      8,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	client.DeleteIndex(ctx)

	if err := client.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex() error = %v", err)
	}

	// Creating again should not error (idempotent)
	if err := client.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex() second call error = %v", err)
	}

	client.DeleteIndex(ctx)
}

func TestClient_UpsertAndKNNSearch(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "cine-rag-test-knn",
		Dims:      8,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	client.DeleteIndex(ctx)
	if err := client.CreateIndex(ctx); err != nil {
		t.Fatalf("CreateIndex() error = %v", err)
	}

	docs := []Doc{
		{
			ID:        "m1",
			Title:     "The Matrix",
			Year:      1999,
			Genres:    "Action, Sci-Fi",
			Text:      "Movie: The Matrix | Year: 1999",
			Embedding: testVector(8, 0),
			IndexedAt: time.Now().UTC(),
		},
		{
			ID:        "m2",
			Title:     "Blade Runner",
			Year:      1982,
			Genres:    "Sci-Fi",
			Text:      "Movie: Blade Runner | Year: 1982",
			Embedding: testVector(8, 1),
			IndexedAt: time.Now().UTC(),
		},
	}

	for _, doc := range docs {
		if err := client.UpsertDoc(ctx, doc); err != nil {
			t.Fatalf("UpsertDoc(%s) error = %v", doc.ID, err)
		}
	}

	client.Refresh(ctx)

	hits, err := client.KNNSearch(ctx, testVector(8, 0), 2)
	if err != nil {
		t.Fatalf("KNNSearch() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Doc.ID != "m1" {
		t.Errorf("top hit = %q, want m1", hits[0].Doc.ID)
	}
	// Exact match: score (1+cos)/2 = 1. Orthogonal: 0.5.
	if hits[0].Score < 0.99 {
		t.Errorf("top score = %v, want ~1.0", hits[0].Score)
	}
	if hits[1].Score > 0.51 {
		t.Errorf("orthogonal score = %v, want ~0.5", hits[1].Score)
	}

	client.DeleteIndex(ctx)
}

func TestClient_UpsertReplacesByID(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "cine-rag-test-upsert",
		Dims:      8,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	client.DeleteIndex(ctx)
	client.CreateIndex(ctx)

	doc := Doc{ID: "m1", Title: "The Matrix", Year: 1999, Text: "v1", Embedding: testVector(8, 0)}
	if err := client.UpsertDoc(ctx, doc); err != nil {
		t.Fatalf("UpsertDoc() error = %v", err)
	}

	doc.Text = "v2"
	doc.ReviewCount = 12
	if err := client.UpsertDoc(ctx, doc); err != nil {
		t.Fatalf("UpsertDoc() second call error = %v", err)
	}

	client.Refresh(ctx)

	count, err := client.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 after re-upsert", count)
	}

	got, err := client.GetDoc(ctx, "m1")
	if err != nil {
		t.Fatalf("GetDoc() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetDoc() returned nil")
	}
	if got.Text != "v2" || got.ReviewCount != 12 {
		t.Errorf("document not replaced: Text=%q ReviewCount=%d", got.Text, got.ReviewCount)
	}

	client.DeleteIndex(ctx)
}

func TestClient_DeleteDoc(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "cine-rag-test-delete",
		Dims:      8,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	client.DeleteIndex(ctx)
	client.CreateIndex(ctx)

	doc := Doc{ID: "m1", Title: "The Matrix", Year: 1999, Text: "t", Embedding: testVector(8, 0)}
	if err := client.UpsertDoc(ctx, doc); err != nil {
		t.Fatalf("UpsertDoc() error = %v", err)
	}
	client.Refresh(ctx)

	removed, err := client.DeleteDoc(ctx, "m1")
	if err != nil {
		t.Fatalf("DeleteDoc() error = %v", err)
	}
	if !removed {
		t.Error("DeleteDoc() = false, want true for existing document")
	}

	// Deleting a missing document is not an error
	removed, err = client.DeleteDoc(ctx, "m1")
	if err != nil {
		t.Fatalf("DeleteDoc() second call error = %v", err)
	}
	if removed {
		t.Error("DeleteDoc() = true, want false for missing document")
	}

	got, err := client.GetDoc(ctx, "m1")
	if err != nil {
		t.Fatalf("GetDoc() error = %v", err)
	}
	if got != nil {
		t.Error("GetDoc() should return nil after delete")
	}

	client.DeleteIndex(ctx)
}

func TestClient_ListDocs(t *testing.T) {
	skipIfNoES(t)

	client, err := New(Config{
		Addresses: []string{"http://localhost:9200"},
		Index:     "cine-rag-test-list",
		Dims:      8,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()

	client.DeleteIndex(ctx)
	client.CreateIndex(ctx)

	for i, title := range []string{"Heat", "Alien", "Casablanca"} {
		doc := Doc{ID: title, Title: title, Year: 1980 + i, Text: title, Embedding: testVector(8, i)}
		if err := client.UpsertDoc(ctx, doc); err != nil {
			t.Fatalf("UpsertDoc(%s) error = %v", title, err)
		}
	}
	client.Refresh(ctx)

	docs, err := client.ListDocs(ctx, 10)
	if err != nil {
		t.Fatalf("ListDocs() error = %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("got %d docs, want 3", len(docs))
	}
	want := []string{"Alien", "Casablanca", "Heat"}
	for i, w := range want {
		if docs[i].Title != w {
			t.Errorf("docs[%d].Title = %q, want %q", i, docs[i].Title, w)
		}
	}

	client.DeleteIndex(ctx)
}
