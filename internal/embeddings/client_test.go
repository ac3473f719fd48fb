package embeddings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "empty base URL",
			config:  Config{BaseURL: "", Model: "test-model"},
			wantErr: true,
		},
		{
			name:    "empty model",
			config:  Config{BaseURL: "http://localhost:8080/v1", Model: ""},
			wantErr: true,
		},
		{
			name:    "valid config",
			config:  Config{BaseURL: "http://localhost:8080/v1", Model: "test-model"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClient_Embed(t *testing.T) {
	var gotAuth, gotPath string
	var gotReq embeddingRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotReq)

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"embedding": []float32{0.1, 0.2, 0.3}},
			},
		})
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL + "/v1", APIKey: "sk-test", Model: "text-embedding-3-small"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	vec, err := client.Embed(t.Context(), "time travel action movies")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(vec) != 3 {
		t.Errorf("embedding length = %d, want 3", len(vec))
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/v1/embeddings" {
		t.Errorf("path = %q, want /v1/embeddings", gotPath)
	}
	if gotReq.Model != "text-embedding-3-small" {
		t.Errorf("model = %q", gotReq.Model)
	}
}

func TestClient_Embed_TruncatesLongInput(t *testing.T) {
	var gotReq embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{0.5}}},
		})
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL, Model: "m"})

	_, err := client.Embed(t.Context(), strings.Repeat("x", MaxInputChars+500))
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(gotReq.Input) != MaxInputChars {
		t.Errorf("input length = %d, want %d", len(gotReq.Input), MaxInputChars)
	}
}

func TestClient_Embed_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client, _ := New(Config{BaseURL: server.URL, Model: "m"})

	if _, err := client.Embed(t.Context(), "q"); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestDimensions(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-ada-002", 1536},
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"unknown-model", 1536}, // default
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := Dimensions(tt.model); got != tt.want {
				t.Errorf("Dimensions(%q) = %d, want %d", tt.model, got, tt.want)
			}
		})
	}
}
