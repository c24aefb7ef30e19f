package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig configures the embedding capability client.
type EmbeddingConfig struct {
	Type        string `yaml:"type"` // "openai" or "hashing"
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`
	// Dimension is used by the hashing embedder; the openai embedder derives
	// its dimension from the model.
	Dimension int `yaml:"dimension"`
}

// GenerationConfig configures the text-generation capability client.
type GenerationConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// ChunkingConfig configures how documents are split into chunks. Overlap is a
// pointer because zero is a legal configured value, distinct from unset.
type ChunkingConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap"`
}

// RetrievalConfig configures query-time retrieval.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// QdrantConfig contains connection details for a Qdrant-backed index.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Type   string        `yaml:"type"` // "sqlite", "qdrant" or "memory"
	Path   string        `yaml:"path"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// CorpusConfig locates the raw document corpus.
type CorpusConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP serving layer.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Index      IndexConfig      `yaml:"index"`
	Server     ServerConfig     `yaml:"server"`
}

// Chunking and retrieval defaults follow the original corpus parameters.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultTopK         = 4
)

// Load reads a config from the given path. If the file does not exist,
// returns validated defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, cfg.Validate()
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks structural invariants up front so a bad config fails fast
// with a named field instead of surfacing mid-pipeline.
func (c *AppConfig) Validate() error {
	switch c.Embedding.Type {
	case "openai", "hashing":
	default:
		return fmt.Errorf("config: unknown embedding.type %q", c.Embedding.Type)
	}
	if c.Embedding.Type == "hashing" && c.Embedding.Dimension <= 0 {
		return errors.New("config: embedding.dimension must be positive for the hashing embedder")
	}
	if c.Chunking.Size <= 0 {
		return errors.New("config: chunking.size must be positive")
	}
	if c.Chunking.Overlap == nil || *c.Chunking.Overlap < 0 || *c.Chunking.Overlap >= c.Chunking.Size {
		return errors.New("config: chunking.overlap must be in [0, chunking.size)")
	}
	if c.Retrieval.TopK <= 0 {
		return errors.New("config: retrieval.top_k must be positive")
	}
	switch c.Index.Type {
	case "sqlite", "memory":
	case "qdrant":
		if c.Index.Qdrant == nil || c.Index.Qdrant.URL == "" || c.Index.Qdrant.Collection == "" {
			return errors.New("config: index.qdrant.url and index.qdrant.collection are required")
		}
	default:
		return fmt.Errorf("config: unknown index.type %q", c.Index.Type)
	}
	if c.Index.Type == "sqlite" && c.Index.Path == "" {
		return errors.New("config: index.path is required for the sqlite index")
	}
	return nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Embedding.Type == "" {
		cfg.Embedding.Type = "openai"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-large"
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 30
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 64
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 5
	}
	if cfg.Embedding.Type == "hashing" && cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = 256
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o-mini"
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = 120
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = DefaultChunkSize
	}
	if cfg.Chunking.Overlap == nil {
		overlap := DefaultChunkOverlap
		cfg.Chunking.Overlap = &overlap
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = DefaultTopK
	}
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "data"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "sqlite"
	}
	if cfg.Index.Type == "sqlite" && cfg.Index.Path == "" {
		cfg.Index.Path = "index_data"
	}
	if cfg.Index.Qdrant != nil && cfg.Index.Qdrant.TimeoutSecs == 0 {
		cfg.Index.Qdrant.TimeoutSecs = 15
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
}
