// ABOUTME: Centralized configuration for the optimedix assistant
// ABOUTME: Layers built-in defaults, an optional YAML file and environment variables through koanf
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes the environment variables read by Load
const EnvPrefix = "OPTIMEDIX_"

// defaultsYAML seeds every key before the file and environment layers
const defaultsYAML = `
corpus:
  path: data/medical_docs
  extensions: [".txt", ".md"]
  watch_debounce: 500ms
chunking:
  size: 500
  overlap: 100
embedding:
  provider: voyage
  batch_size: 32
  requests_per_second: 5
index:
  backend: chromem
  name: medical-knowledge
  namespace: medical_data
  compress: false
  qdrant_host: localhost
  qdrant_port: 6334
  qdrant_tls: false
llm:
  provider: gemini
  model: gemini-2.0-flash
  temperature: 0.1
  max_output_tokens: 2048
retrieval:
  top_k: 8
memory:
  window: 5
  session_ttl: 1h
  max_sessions: 1000
followup:
  merge_replies: true
remote:
  timeout: 30s
  retries: 1
  retry_delay: 500ms
log:
  level: info
  format: console
server:
  addr: ":8080"
  shutdown_timeout: 10s
`

// Config holds all configuration for the assistant
type Config struct {
	Corpus    CorpusConfig    `koanf:"corpus"`
	Chunking  ChunkingConfig  `koanf:"chunking"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	Index     IndexConfig     `koanf:"index"`
	LLM       LLMConfig       `koanf:"llm"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Memory    MemoryConfig    `koanf:"memory"`
	FollowUp  FollowUpConfig  `koanf:"followup"`
	Remote    RemoteConfig    `koanf:"remote"`
	Storage   StorageConfig   `koanf:"storage"`
	Log       LogConfig       `koanf:"log"`
	Server    ServerConfig    `koanf:"server"`
}

type CorpusConfig struct {
	Path          string        `koanf:"path"`
	Extensions    []string      `koanf:"extensions"`
	WatchDebounce time.Duration `koanf:"watch_debounce"`
}

type ChunkingConfig struct {
	Size    int `koanf:"size"`
	Overlap int `koanf:"overlap"`
}

type EmbeddingConfig struct {
	// Provider is one of voyage, openai, gemini or hash
	Provider          string  `koanf:"provider"`
	Model             string  `koanf:"model"`
	Dimension         int     `koanf:"dimension"`
	APIKey            string  `koanf:"api_key"`
	BaseURL           string  `koanf:"base_url"`
	BatchSize         int     `koanf:"batch_size"`
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

type IndexConfig struct {
	// Backend is one of chromem, memory, qdrant or sqlite
	Backend      string `koanf:"backend"`
	Name         string `koanf:"name"`
	Namespace    string `koanf:"namespace"`
	Path         string `koanf:"path"`
	Compress     bool   `koanf:"compress"`
	QdrantHost   string `koanf:"qdrant_host"`
	QdrantPort   int    `koanf:"qdrant_port"`
	QdrantAPIKey string `koanf:"qdrant_api_key"`
	QdrantTLS    bool   `koanf:"qdrant_tls"`
}

type LLMConfig struct {
	// Provider is one of gemini or openai
	Provider        string  `koanf:"provider"`
	Model           string  `koanf:"model"`
	APIKey          string  `koanf:"api_key"`
	BaseURL         string  `koanf:"base_url"`
	Temperature     float64 `koanf:"temperature"`
	MaxOutputTokens int     `koanf:"max_output_tokens"`
}

type RetrievalConfig struct {
	TopK int `koanf:"top_k"`
}

type MemoryConfig struct {
	Window int `koanf:"window"`
	// SessionTTL expires chat sessions idle this long; zero keeps them
	SessionTTL  time.Duration `koanf:"session_ttl"`
	MaxSessions int           `koanf:"max_sessions"`
}

type FollowUpConfig struct {
	TriggersFile string `koanf:"triggers_file"`
	MergeReplies bool   `koanf:"merge_replies"`
}

type RemoteConfig struct {
	Timeout    time.Duration `koanf:"timeout"`
	Retries    int           `koanf:"retries"`
	RetryDelay time.Duration `koanf:"retry_delay"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Load reads configuration from defaults, the YAML file at path (if any) and the environment.
// An empty path falls back to $OPTIMEDIX_CONFIG.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultsYAML)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// OPTIMEDIX_EMBEDDING_BATCH_SIZE -> embedding.batch_size
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyCredentials()
	cfg.applyEmbeddingDefaults()
	cfg.applyPaths()

	return &cfg, cfg.Validate()
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// applyCredentials fills empty API keys from the providers' conventional variables
func (c *Config) applyCredentials() {
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = providerKey(c.Embedding.Provider)
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = providerKey(c.LLM.Provider)
	}
	if c.Index.QdrantAPIKey == "" {
		c.Index.QdrantAPIKey = os.Getenv("QDRANT_API_KEY")
	}
}

func providerKey(provider string) string {
	switch provider {
	case "voyage":
		return os.Getenv("VOYAGE_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "gemini":
		return firstEnv("GOOGLE_API_KEY", "GEMINI_API_KEY")
	}
	return ""
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// embeddingDefaults gives each provider's default model and its native dimension
var embeddingDefaults = map[string]struct {
	model     string
	dimension int
}{
	"voyage": {"voyage-large-2", 1536},
	"openai": {"text-embedding-3-small", 1536},
	"gemini": {"text-embedding-004", 768},
	"hash":   {"", 256},
}

// GeminiMaxDimension is the largest vector text-embedding-004 returns
const GeminiMaxDimension = 768

// applyEmbeddingDefaults fills an unset model or dimension for the chosen provider
func (c *Config) applyEmbeddingDefaults() {
	d, ok := embeddingDefaults[c.Embedding.Provider]
	if !ok {
		return
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = d.model
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = d.dimension
	}
}

func (c *Config) applyPaths() {
	if c.Index.Path == "" {
		c.Index.Path = filepath.Join(DataDir(), "index")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(DataDir(), "optimedix.db")
	}
}

// DataDir returns the XDG data directory for optimedix
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "optimedix")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".optimedix"
	}
	return filepath.Join(home, ".local", "share", "optimedix")
}

// RetryAttempts is the total number of tries for each external call
func (c *Config) RetryAttempts() int {
	return c.Remote.Retries + 1
}
