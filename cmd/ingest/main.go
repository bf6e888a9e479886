package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/devmalya99/rag-agent/internal/ai"
	"github.com/devmalya99/rag-agent/internal/config"
	"github.com/devmalya99/rag-agent/internal/ingest"
	"github.com/devmalya99/rag-agent/internal/responder"
	"github.com/devmalya99/rag-agent/internal/transcript"
	"github.com/devmalya99/rag-agent/internal/vecindex"
	"github.com/devmalya99/rag-agent/pkg/models"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Usage:
//
//	ingest <youtube-url-or-path> [question]
//
// Ingests a transcript and, when a question is given, answers it from
// the freshly built index. Status events stream to stdout as NDJSON.
func main() {
	_ = godotenv.Load()

	fs := pflag.NewFlagSet("rag-agent-ingest", pflag.ExitOnError)

	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	args := fs.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: ingest <youtube-url-or-path> [question]")
		os.Exit(2)
	}
	source := args[0]

	clientConfig, err := buildClientConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}
	c, err := ai.NewClient(clientConfig)
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}

	// A path that exists on disk is read directly; anything else is
	// treated as a video URL.
	var fetcher transcript.Fetcher = transcript.NewYouTubeClient(cfg.YtdlpPath)
	maxDuration := cfg.MaxDuration
	if _, statErr := os.Stat(source); statErr == nil {
		fetcher = transcript.NewLocalLoader()
		// Plain text files carry no duration to check against.
		maxDuration = 0
	}

	index := vecindex.New()
	pipeline := ingest.New(fetcher, c, index)
	pipeline.ChunkSize = cfg.ChunkSize
	pipeline.ChunkOverlap = cfg.ChunkOverlap
	pipeline.MaxDuration = maxDuration

	enc := json.NewEncoder(os.Stdout)
	ctx := context.Background()
	if err := pipeline.Run(ctx, source, func(ev models.StatusEvent) {
		_ = enc.Encode(ev)
	}); err != nil {
		os.Exit(1)
	}

	if len(args) < 2 {
		return
	}

	rsp := responder.New(c, index)
	rsp.TopK = cfg.TopK
	answer, err := rsp.Respond(ctx, args[1])
	if err != nil {
		log.Fatalf("Failed to generate answer: %v", err)
	}
	fmt.Println(answer)
}

func buildClientConfig(cfg config.Specification) (*ai.ClientConfig, error) {
	switch strings.ToLower(cfg.Provider) {
	case "google", "gemini":
		return &ai.ClientConfig{
			APIKey:      cfg.APIKey,
			EmbedModel:  cfg.EmbedModel,
			ChatModel:   cfg.ChatModel,
			Dim:         cfg.Dim,
			Temperature: cfg.Temperature,
			Provider:    ai.ProviderGoogle,
		}, nil
	case "openai":
		return &ai.ClientConfig{
			APIKey:      cfg.APIKey,
			EmbedModel:  cfg.EmbedModel,
			ChatModel:   cfg.ChatModel,
			Dim:         cfg.Dim,
			Temperature: cfg.Temperature,
			Provider:    ai.ProviderOpenAI,
		}, nil
	case "stub":
		return &ai.ClientConfig{
			Dim:      cfg.Dim,
			Provider: ai.ProviderStub,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
