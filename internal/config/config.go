package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Specification struct {
	Provider      string  `yaml:"provider"`
	APIKey        string  `yaml:"providerApiKey" envconfig:"PROVIDER_API_KEY"`
	EmbedModel    string  `yaml:"providerEmbedModel" envconfig:"PROVIDER_EMBEDDING_MODEL"`
	ChatModel     string  `yaml:"providerChatModel" envconfig:"PROVIDER_CHAT_MODEL"`
	Dim           int     `yaml:"providerDim" envconfig:"EMBED_DIM"`
	Temperature   float32 `yaml:"providerTemperature" envconfig:"PROVIDER_TEMPERATURE"`
	YtdlpPath     string  `yaml:"ytdlpPath" split_words:"true"`
	MaxDuration   float64 `yaml:"maxDurationSeconds" envconfig:"MAX_DURATION_SECONDS"`
	ChunkSize     int     `yaml:"chunkSize" split_words:"true"`
	ChunkOverlap  int     `yaml:"chunkOverlap" split_words:"true"`
	TopK          int     `yaml:"topK" envconfig:"TOP_K"`
	AllowedOrigin string  `yaml:"allowedOrigin" split_words:"true"`
	LogLevel      string  `yaml:"logLevel" split_words:"true"`
	Port          int     `yaml:"port" split_words:"true"`

	flags *pflag.FlagSet `ignored:"true"`
}

const envPrefix = "RAGAGENT"

func (s *Specification) Usage() {
	fmt.Fprint(os.Stderr, s.flags.FlagUsages())
}

// Load => defaults < YAML < env < flags.
// configPath may be ""; if so we auto-discover.
func Load(configPath string, fs *pflag.FlagSet) (Specification, error) {
	var cfg Specification

	// set defaults (lowest precedence)
	setDefaults(&cfg)
	bindFlags(fs, &cfg)

	// config file
	path := configPath
	if path == "" {
		if v := os.Getenv(envPrefix + "_CONFIG"); v != "" {
			path = v
		} else {
			for _, cand := range []string{
				"config/rag-agent.yaml",
				"config/config.yaml",
				"./rag-agent.yaml",
				"./config.yaml",
			} {
				if fileExists(cand) {
					path = cand
					break
				}
			}
		}
	}

	if path != "" {
		if !fileExists(path) {
			return Specification{}, fmt.Errorf("config file not found: %s", path)
		}
		if err := loadYAML(path, &cfg); err != nil {
			return Specification{}, fmt.Errorf("load yaml %s: %w", path, err)
		}
	}

	// env overrides config file
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Specification{}, fmt.Errorf("env override: %w", err)
	}

	// flags override everything
	if err := fs.Parse(os.Args[1:]); err != nil {
		return Specification{}, err
	}
	applyChangedFlags(fs, &cfg)

	// GOOGLE_API_KEY is the conventional variable for the Gemini API;
	// accept it when the prefixed one is absent.
	if strings.TrimSpace(cfg.APIKey) == "" {
		cfg.APIKey = os.Getenv("GOOGLE_API_KEY")
	}

	// Minimal sanity
	if cfg.ChunkSize <= 0 {
		return Specification{}, fmt.Errorf("chunk size must be positive, got %d", cfg.ChunkSize)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return Specification{}, fmt.Errorf("chunk overlap must be in [0, chunk size), got %d", cfg.ChunkOverlap)
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// ---------- helpers ----------

func loadYAML(path string, into any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(b, into)
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

func bindFlags(fs *pflag.FlagSet, c *Specification) {
	fs.String("config", "", "Path to config file")

	// If --config is provided on the command line, capture it now so
	// config discovery (which runs before flags.Parse) can use it.
	for i, a := range os.Args {
		if a == "--config" {
			if i+1 < len(os.Args) && !strings.HasPrefix(os.Args[i+1], "-") {
				_ = os.Setenv(envPrefix+"_CONFIG", os.Args[i+1])
			}
		} else if strings.HasPrefix(a, "--config=") {
			parts := strings.SplitN(a, "=", 2)
			if len(parts) == 2 {
				_ = os.Setenv(envPrefix+"_CONFIG", parts[1])
			}
		}
	}

	fs.String("provider", c.Provider, "Provider (google, openai, stub)")
	fs.String("provider-api-key", c.APIKey, "Provider API key")
	fs.String("provider-embedding-model", c.EmbedModel, "Provider embedding model")
	fs.String("provider-chat-model", c.ChatModel, "Provider chat model")
	fs.Int("embed-dim", c.Dim, "Embedding dimensionality")
	fs.Float32("provider-temperature", c.Temperature, "Chat model sampling temperature")

	fs.String("ytdlp-path", c.YtdlpPath, "Path to the yt-dlp binary")
	fs.Float64("max-duration-seconds", c.MaxDuration, "Maximum video duration in seconds (0 disables the limit)")
	fs.Int("chunk-size", c.ChunkSize, "Transcript chunk size in characters")
	fs.Int("chunk-overlap", c.ChunkOverlap, "Overlap between adjacent chunks in characters")
	fs.Int("top-k", c.TopK, "Number of chunks retrieved per question")

	fs.String("allowed-origin", c.AllowedOrigin, "CORS allowed origin")
	fs.String("log-level", c.LogLevel, "Log level (debug|info|warn|error)")
	fs.Int("port", c.Port, "API server port")

	// Used later for usage/help
	// create a shallow copy of fs (so Usage can be called safely without mutating caller)
	copied := pflag.NewFlagSet("temp", pflag.ContinueOnError)
	*copied = *fs
	c.flags = copied
}

func applyChangedFlags(fs *pflag.FlagSet, c *Specification) {
	setStr := func(name string, dst *string) {
		if fs.Changed(name) {
			v, _ := fs.GetString(name)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if fs.Changed(name) {
			v, _ := fs.GetInt(name)
			*dst = v
		}
	}

	// (We ignore --config here; it's for discovery.)
	setStr("provider", &c.Provider)
	setStr("provider-api-key", &c.APIKey)
	setStr("provider-embedding-model", &c.EmbedModel)
	setStr("provider-chat-model", &c.ChatModel)
	setInt("embed-dim", &c.Dim)
	if fs.Changed("provider-temperature") {
		v, _ := fs.GetFloat32("provider-temperature")
		c.Temperature = v
	}

	setStr("ytdlp-path", &c.YtdlpPath)
	if fs.Changed("max-duration-seconds") {
		v, _ := fs.GetFloat64("max-duration-seconds")
		c.MaxDuration = v
	}
	setInt("chunk-size", &c.ChunkSize)
	setInt("chunk-overlap", &c.ChunkOverlap)
	setInt("top-k", &c.TopK)

	setStr("allowed-origin", &c.AllowedOrigin)
	setStr("log-level", &c.LogLevel)
	setInt("port", &c.Port)
}

func setDefaults(c *Specification) {
	c.Provider = "google"
	c.Temperature = 0.7
	c.YtdlpPath = "yt-dlp"
	c.MaxDuration = 300
	c.ChunkSize = 1000
	c.ChunkOverlap = 200
	c.TopK = 5
	c.AllowedOrigin = "*"
	c.LogLevel = "info"
	c.Port = 8000
	c.Dim = 0
}
