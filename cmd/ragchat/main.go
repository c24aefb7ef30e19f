package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"ragchat/internal/config"
	"ragchat/internal/domain"
	"ragchat/internal/embedding/hashing"
	embopenai "ragchat/internal/embedding/openai"
	genopenai "ragchat/internal/generation/openai"
	"ragchat/internal/logger"
	"ragchat/internal/server"
	"ragchat/internal/service"
	"ragchat/internal/tui"
	"ragchat/internal/vectorindex/memory"
	"ragchat/internal/vectorindex/qdrant"
	"ragchat/internal/vectorindex/sqlite"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath = flag.String("config", "config.yaml", "Path to YAML config file")
		useTUI  = flag.Bool("tui", false, "Run the interactive terminal chat instead of the HTTP server")
		verbose = flag.Bool("verbose", false, "Print pipeline debug output")
	)
	flag.Parse()
	logger.SetVerbose(*verbose)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Missing provider credentials are startup-fatal, not a per-request error.
	if cfg.Embedding.Type == "openai" && os.Getenv(cfg.Embedding.APIKeyEnv) == "" {
		log.Fatalf("missing embedding API key in env %s", cfg.Embedding.APIKeyEnv)
	}
	if os.Getenv(cfg.Generation.APIKeyEnv) == "" {
		log.Fatalf("missing generation API key in env %s", cfg.Generation.APIKeyEnv)
	}

	svc := service.New(initClients(cfg), cfg.Retrieval.TopK)

	if *useTUI {
		if _, err := tea.NewProgram(tui.New(svc), tea.WithAltScreen()).Run(); err != nil {
			log.Fatal(err)
		}
		return
	}

	e := server.New(svc)
	log.Printf("serving on %s (index: %s)", cfg.Server.Addr, cfg.Index.Type)
	log.Fatal(e.Start(cfg.Server.Addr))
}

// initClients builds the single-flight initializer: it opens the capability
// clients and validates that an index generation exists before the session
// becomes ready.
func initClients(cfg *config.AppConfig) service.InitFunc {
	return func(ctx context.Context) (*service.Clients, error) {
		emb, err := buildEmbedder(cfg)
		if err != nil {
			return nil, err
		}
		gen, err := genopenai.NewClient(genopenai.Config{
			APIKey:      os.Getenv(cfg.Generation.APIKeyEnv),
			BaseURL:     cfg.Generation.BaseURL,
			Model:       cfg.Generation.Model,
			Timeout:     time.Duration(cfg.Generation.TimeoutSecs) * time.Second,
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
		})
		if err != nil {
			return nil, err
		}
		idx, err := buildIndex(cfg)
		if err != nil {
			return nil, err
		}
		// Probe so a missing index fails initialization with its own
		// classification instead of surfacing on the first retrieval.
		if _, err := idx.Query(ctx, nil, 0); err != nil {
			_ = idx.Close()
			return nil, err
		}
		return &service.Clients{Embedder: emb, Generator: gen, Index: idx}, nil
	}
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedding.Type {
	case "hashing":
		return hashing.New(cfg.Embedding.Dimension), nil
	default:
		return embopenai.NewClient(embopenai.Config{
			APIKey:     os.Getenv(cfg.Embedding.APIKeyEnv),
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
			BatchSize:  cfg.Embedding.BatchSize,
			MaxRetries: cfg.Embedding.MaxRetries,
		})
	}
}

func buildIndex(cfg *config.AppConfig) (domain.Index, error) {
	switch cfg.Index.Type {
	case "memory":
		return memory.New(), nil
	case "qdrant":
		return qdrant.New(qdrant.Config{
			URL:        cfg.Index.Qdrant.URL,
			APIKey:     cfg.Index.Qdrant.APIKey,
			Collection: cfg.Index.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Index.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return sqlite.New(cfg.Index.Path), nil
	}
}
