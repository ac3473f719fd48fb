package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mklein/cine-rag/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "cine-rag",
	Short: "cine-rag: a movie research assistant",
	Long: `cine-rag aggregates movie data and reviews from IMDb, Rotten Tomatoes,
and Metacritic, indexes them in Elasticsearch as embeddings, and answers
questions about the collected movies with an LLM grounded in that data.

Commands:
  add        Scrape a movie from all sources, archive it, and index it
  ask        Answer a question using indexed movies as context
  search     Semantic search over indexed movies
  movies     List indexed movies and index stats
  sentiment  Show the review-sentiment breakdown for a movie
  delete     Remove a movie from the index
  reindex    Rebuild a movie's index entry from its archive
  serve      Start the MCP server`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// API keys usually live in a local .env during development
	godotenv.Load()

	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/cine-rag")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// CINERAG_ELASTICSEARCH_ADDRESSES -> elasticsearch.addresses
	viper.SetEnvPrefix("CINERAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("elasticsearch.addresses", "CINERAG_ELASTICSEARCH_ADDRESSES")
	viper.BindEnv("elasticsearch.index", "CINERAG_ELASTICSEARCH_INDEX")
	viper.BindEnv("elasticsearch.username", "CINERAG_ELASTICSEARCH_USERNAME")
	viper.BindEnv("elasticsearch.password", "CINERAG_ELASTICSEARCH_PASSWORD")
	viper.BindEnv("embeddings.base_url", "CINERAG_EMBEDDINGS_BASE_URL")
	viper.BindEnv("embeddings.api_key", "CINERAG_EMBEDDINGS_API_KEY")
	viper.BindEnv("embeddings.model", "CINERAG_EMBEDDINGS_MODEL")
	viper.BindEnv("llm.base_url", "CINERAG_LLM_BASE_URL")
	viper.BindEnv("llm.api_key", "CINERAG_LLM_API_KEY")
	viper.BindEnv("llm.model", "CINERAG_LLM_MODEL")
	viper.BindEnv("scraper.delay", "CINERAG_SCRAPER_DELAY")
	viper.BindEnv("scraper.max_retries", "CINERAG_SCRAPER_MAX_RETRIES")
	viper.BindEnv("scraper.max_reviews", "CINERAG_SCRAPER_MAX_REVIEWS")
	viper.BindEnv("storage.endpoint", "CINERAG_STORAGE_ENDPOINT")
	viper.BindEnv("storage.bucket", "CINERAG_STORAGE_BUCKET")
	viper.BindEnv("storage.access_key_id", "CINERAG_STORAGE_ACCESS_KEY_ID")
	viper.BindEnv("storage.secret_access_key", "CINERAG_STORAGE_SECRET_ACCESS_KEY")
	viper.BindEnv("rag.k", "CINERAG_RAG_K")
	viper.BindEnv("rag.threshold", "CINERAG_RAG_THRESHOLD")
	viper.BindEnv("mcp.name", "CINERAG_MCP_NAME")
	viper.BindEnv("mcp.version", "CINERAG_MCP_VERSION")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("CINERAG_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}
