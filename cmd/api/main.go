package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/devmalya99/rag-agent/internal/ai"
	"github.com/devmalya99/rag-agent/internal/config"
	"github.com/devmalya99/rag-agent/internal/ingest"
	"github.com/devmalya99/rag-agent/internal/responder"
	"github.com/devmalya99/rag-agent/internal/server"
	"github.com/devmalya99/rag-agent/internal/transcript"
	"github.com/devmalya99/rag-agent/internal/vecindex"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/pflag"
)

func main() {
	// Optional .env for local development; a real environment wins.
	_ = godotenv.Load()

	// Create flagset for configuration
	fs := pflag.NewFlagSet("rag-agent-api", pflag.ExitOnError)

	// Load configuration
	cfg, err := config.Load("", fs)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	fs.Usage = cfg.Usage

	// Set up logging
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Invalid log level '%s': %v", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	logger.Info().Str("provider", cfg.Provider).Str("log_level", cfg.LogLevel).Msg("starting rag-agent api")

	clientConfig, err := buildClientConfig(cfg)
	if err != nil {
		log.Fatal(err)
	}

	c, err := ai.NewClient(clientConfig)
	if err != nil {
		log.Fatalf("Failed to create AI client: %v", err)
	}
	logger.Info().Int("embedding_dim", c.Dim()).Str("embed_model", clientConfig.EmbedModel).Msg("AI client initialized")

	index := vecindex.New()

	pipeline := ingest.New(transcript.NewYouTubeClient(cfg.YtdlpPath), c, index)
	pipeline.ChunkSize = cfg.ChunkSize
	pipeline.ChunkOverlap = cfg.ChunkOverlap
	pipeline.MaxDuration = cfg.MaxDuration

	rsp := responder.New(c, index)
	rsp.TopK = cfg.TopK

	srv := server.New(pipeline, rsp, cfg.AllowedOrigin)

	handler := hlog.NewHandler(logger)(
		hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
			logger.Info().Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Int("size", size).Dur("dur", dur).Msg("http")
		})(srv.Handler()),
	)

	address := fmt.Sprintf(":%d", cfg.Port)
	s := &http.Server{Addr: address, Handler: handler}
	logger.Info().Str("addr", s.Addr).Msg("api server listening")
	log.Fatal(s.ListenAndServe())
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
