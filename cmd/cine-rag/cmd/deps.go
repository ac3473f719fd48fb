package cmd

import (
	"fmt"
	"log/slog"

	"github.com/mklein/cine-rag/internal/aggregate"
	"github.com/mklein/cine-rag/internal/config"
	"github.com/mklein/cine-rag/internal/elasticsearch"
	"github.com/mklein/cine-rag/internal/embeddings"
	"github.com/mklein/cine-rag/internal/llm"
	"github.com/mklein/cine-rag/internal/pipeline"
	"github.com/mklein/cine-rag/internal/rag"
	"github.com/mklein/cine-rag/internal/scraper"
	"github.com/mklein/cine-rag/internal/storage"
	"github.com/mklein/cine-rag/internal/store"
)

// newStore wires the embedding client and ES index into a vector store.
func newStore(cfg config.Config) (*store.Store, error) {
	embedClient, err := embeddings.New(embeddings.Config{
		BaseURL: cfg.Embeddings.BaseURL,
		APIKey:  cfg.Embeddings.APIKey,
		Model:   cfg.Embeddings.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings client: %w", err)
	}

	esClient, err := elasticsearch.New(elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Index:     cfg.Elasticsearch.Index,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Dims:      embeddings.Dimensions(cfg.Embeddings.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ES client: %w", err)
	}

	return store.New(embedClient, esClient, slog.Default()), nil
}

// newArchive returns the S3 archive client, or nil when archiving is not
// configured.
func newArchive(cfg config.Config) (*storage.Client, error) {
	if cfg.Storage.Endpoint == "" {
		return nil, nil
	}
	return storage.New(storage.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UseSSL:          cfg.Storage.UseSSL,
	})
}

// newPipeline wires the scrapers, archive, and store into the add flow.
func newPipeline(cfg config.Config, s *store.Store) (*pipeline.Pipeline, error) {
	scraperConfig := scraper.Config{
		Delay:      cfg.Scraper.Delay,
		Timeout:    cfg.Scraper.Timeout,
		MaxRetries: cfg.Scraper.MaxRetries,
		MaxReviews: cfg.Scraper.MaxReviews,
		UserAgent:  cfg.Scraper.UserAgent,
	}
	manager := aggregate.NewManager(aggregate.DefaultSources(scraperConfig)...)

	archive, err := newArchive(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	// A nil *storage.Client must become a nil interface
	var archiver pipeline.Archiver
	if archive != nil {
		archiver = archive
	}

	return pipeline.New(manager, s, archiver, slog.Default()), nil
}

// newOrchestrator wires the store and LLM into the question-answering flow.
func newOrchestrator(cfg config.Config, s *store.Store) (*rag.Orchestrator, error) {
	llmClient, err := llm.New(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	return rag.New(s, llmClient, rag.Config{
		K:         cfg.RAG.K,
		Threshold: cfg.RAG.Threshold,
	}, slog.Default()), nil
}
