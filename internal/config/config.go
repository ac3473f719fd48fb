package config

import "time"

// Config holds all application configuration.
type Config struct {
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	LLM           LLM           `mapstructure:"llm"`
	Scraper       Scraper       `mapstructure:"scraper"`
	Storage       Storage       `mapstructure:"storage"`
	RAG           RAG           `mapstructure:"rag"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Elasticsearch holds ES connection configuration.
type Elasticsearch struct {
	Addresses []string `mapstructure:"addresses"`
	Index     string   `mapstructure:"index"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Embeddings holds embedding model configuration.
type Embeddings struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// LLM holds answer generation configuration.
type LLM struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// Scraper holds source site scraping configuration.
type Scraper struct {
	Delay      time.Duration `mapstructure:"delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	MaxReviews int           `mapstructure:"max_reviews"`
	UserAgent  string        `mapstructure:"user_agent"`
}

// Storage holds S3/MinIO archive configuration. An empty endpoint
// disables raw-page archiving.
type Storage struct {
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// RAG holds retrieval tuning for question answering.
type RAG struct {
	K         int     `mapstructure:"k"`
	Threshold float64 `mapstructure:"threshold"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Elasticsearch: Elasticsearch{
			Addresses: []string{"http://localhost:9200"},
			Index:     "cine-rag-movies",
		},
		Embeddings: Embeddings{
			BaseURL: "https://api.openai.com/v1",
			Model:   "text-embedding-3-small",
		},
		LLM: LLM{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.1-8b-instant",
			Temperature: 0.1,
			MaxTokens:   1000,
		},
		Scraper: Scraper{
			Delay:      1 * time.Second,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			MaxReviews: 30,
		},
		Storage: Storage{
			Endpoint:        "", // archiving off unless configured
			Bucket:          "cine-rag",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		RAG: RAG{
			K:         5,
			Threshold: 0.1,
		},
		MCP: MCP{
			Name:    "cine-rag",
			Version: "1.0.0",
		},
	}
}
