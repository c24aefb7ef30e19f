package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/embedding/hashing"
	embopenai "ragchat/internal/embedding/openai"
	"ragchat/internal/ingest"
	"ragchat/internal/logger"
	"ragchat/internal/vectorindex/memory"
	"ragchat/internal/vectorindex/qdrant"
	"ragchat/internal/vectorindex/sqlite"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath = flag.String("config", "config.yaml", "Path to YAML config file")
		corpus  = flag.String("corpus", "", "Override the corpus location from the config")
		verbose = flag.Bool("verbose", false, "Print pipeline debug output")
	)
	flag.Parse()
	logger.SetVerbose(*verbose)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if *corpus != "" {
		cfg.Corpus.Path = *corpus
	}

	ilog := log.New(os.Stderr, "[INGEST] ", log.LstdFlags)
	ilog.Printf("corpus=%s index=%s/%s", cfg.Corpus.Path, cfg.Index.Type, cfg.Index.Path)

	p := &ingest.Pipeline{
		Chunker:  chunker.New(cfg.Chunking.Size, *cfg.Chunking.Overlap),
		Embedder: buildEmbedder(cfg),
		Index:    buildIndex(cfg),
	}
	report, err := p.Run(context.Background(), cfg.Corpus.Path)
	if err != nil {
		log.Fatalf("ingestion failed: %v", err)
	}

	fmt.Printf("Ingested %d documents into %d chunks (dimension %d)\n", report.Documents, report.Chunks, report.Dimension)
	if report.SkippedLines > 0 {
		fmt.Printf("Skipped %d malformed record lines\n", report.SkippedLines)
	}
	if report.Digest != "" {
		fmt.Printf("Corpus digest: %s\n", report.Digest)
	}
}

func buildEmbedder(cfg *config.AppConfig) domain.Embedder {
	switch cfg.Embedding.Type {
	case "hashing":
		return hashing.New(cfg.Embedding.Dimension)
	case "openai":
		key := os.Getenv(cfg.Embedding.APIKeyEnv)
		if key == "" {
			log.Fatalf("missing embedding API key in env %s", cfg.Embedding.APIKeyEnv)
		}
		client, err := embopenai.NewClient(embopenai.Config{
			APIKey:     key,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
			BatchSize:  cfg.Embedding.BatchSize,
			MaxRetries: cfg.Embedding.MaxRetries,
		})
		if err != nil {
			log.Fatalf("embedding client init failed: %v", err)
		}
		return client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedding.Type)
		return nil
	}
}

func buildIndex(cfg *config.AppConfig) domain.Index {
	switch cfg.Index.Type {
	case "sqlite":
		return sqlite.New(cfg.Index.Path)
	case "memory":
		return memory.New()
	case "qdrant":
		return qdrant.New(qdrant.Config{
			URL:        cfg.Index.Qdrant.URL,
			APIKey:     cfg.Index.Qdrant.APIKey,
			Collection: cfg.Index.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Index.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatalf("unknown index backend: %s", cfg.Index.Type)
		return nil
	}
}
