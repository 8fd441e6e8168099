// Package config provides configuration loading for localrag.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// ErrInvalid is returned when configuration values cannot be used to start the pipeline.
var ErrInvalid = errors.New("invalid configuration")

const maxConfigFileSize = 1024 * 1024

// Supported backend names.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	StoreChromem = "chromem"
	StoreQdrant  = "qdrant"
	StoreMemory  = "memory"

	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Config holds every tunable of the pipeline and its adapters.
type Config struct {
	// Chunking
	ChunkSize    int `koanf:"chunk_size"`
	ChunkOverlap int `koanf:"chunk_overlap"`

	// Retrieval and synthesis
	TopK                int           `koanf:"top_k"`
	SimilarityThreshold float64       `koanf:"similarity_threshold"`
	MaxRetries          int           `koanf:"max_retries"`
	RetryDelay          time.Duration `koanf:"retry_delay"`

	// Indexing
	BatchSize int    `koanf:"batch_size"`
	DataPath  string `koanf:"data_path"`

	// Models
	Provider           string `koanf:"provider"`
	EmbeddingModel     string `koanf:"embedding_model"`
	GenerationModel    string `koanf:"generation_model"`
	EmbeddingDimension int    `koanf:"embedding_dimension"`
	OllamaURL          string `koanf:"ollama_url"`
	OpenAIBaseURL      string `koanf:"openai_base_url"`
	OpenAIAPIKey       string `koanf:"openai_api_key"`

	// Vector store
	VectorStore      string `koanf:"vector_store"`
	BackingStorePath string `koanf:"backing_store_path"`
	QdrantHost       string `koanf:"qdrant_host"`
	QdrantPort       int    `koanf:"qdrant_port"`
	QdrantCollection string `koanf:"qdrant_collection"`

	// Transport
	Port         string `koanf:"port"`
	ServerMode   bool   `koanf:"server_mode"`
	SessionStore string `koanf:"session_store"`
	RedisAddr    string `koanf:"redis_addr"`

	// Sources
	GitHubToken string `koanf:"github_token"`

	LogLevel string `koanf:"log_level"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		ChunkSize:           1000,
		ChunkOverlap:        200,
		TopK:                3,
		SimilarityThreshold: 0.6,
		MaxRetries:          3,
		RetryDelay:          time.Second,
		BatchSize:           10,
		DataPath:            "Data",
		Provider:            ProviderOllama,
		EmbeddingModel:      "nomic-embed-text",
		GenerationModel:     "llama3.2:3b",
		EmbeddingDimension:  768,
		OllamaURL:           "http://localhost:11434",
		OpenAIBaseURL:       "https://api.openai.com/v1",
		VectorStore:         StoreChromem,
		BackingStorePath:    "chroma",
		QdrantHost:          "localhost",
		QdrantPort:          6334,
		QdrantCollection:    "documents",
		Port:                "8080",
		SessionStore:        SessionMemory,
		RedisAddr:           "localhost:6379",
		LogLevel:            "info",
	}
}

// envKeys maps environment variable names to config keys.
// CHROMA_PATH is kept for compatibility with existing deployments.
var envKeys = map[string]string{
	"CHUNK_SIZE":           "chunk_size",
	"CHUNK_OVERLAP":        "chunk_overlap",
	"TOP_K":                "top_k",
	"SIMILARITY_THRESHOLD": "similarity_threshold",
	"MAX_RETRIES":          "max_retries",
	"RETRY_DELAY":          "retry_delay",
	"BATCH_SIZE":           "batch_size",
	"DATA_PATH":            "data_path",
	"PROVIDER":             "provider",
	"EMBEDDING_MODEL":      "embedding_model",
	"LLM_MODEL":            "generation_model",
	"GENERATION_MODEL":     "generation_model",
	"EMBEDDING_DIMENSION":  "embedding_dimension",
	"OLLAMA_URL":           "ollama_url",
	"OPENAI_BASE_URL":      "openai_base_url",
	"OPENAI_API_KEY":       "openai_api_key",
	"VECTOR_STORE":         "vector_store",
	"CHROMA_PATH":          "backing_store_path",
	"BACKING_STORE_PATH":   "backing_store_path",
	"QDRANT_HOST":          "qdrant_host",
	"QDRANT_PORT":          "qdrant_port",
	"QDRANT_COLLECTION":    "qdrant_collection",
	"PORT":                 "port",
	"SERVER_MODE":          "server_mode",
	"SESSION_STORE":        "session_store",
	"REDIS_ADDR":           "redis_addr",
	"GITHUB_TOKEN":         "github_token",
	"LOG_LEVEL":            "log_level",
}

// Load builds a Config from defaults, an optional YAML file and the environment.
//
// Precedence (highest to lowest):
//  1. Environment variables (CHUNK_SIZE, LLM_MODEL, CHROMA_PATH, ...)
//  2. YAML file at path, if path is non-empty and the file exists
//  3. Default()
//
// The returned config has already passed Validate.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		name, ok := envKeys[key]
		if !ok || value == "" {
			return "", nil
		}
		return name, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.ChunkSize <= 0 {
		problems = append(problems, "chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 {
		problems = append(problems, "chunk_overlap cannot be negative")
	}
	if c.ChunkOverlap >= c.ChunkSize {
		problems = append(problems, fmt.Sprintf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.ChunkOverlap, c.ChunkSize))
	}
	if c.TopK <= 0 {
		problems = append(problems, "top_k must be positive")
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		problems = append(problems, "similarity_threshold must be within [-1, 1]")
	}
	if c.MaxRetries <= 0 {
		problems = append(problems, "max_retries must be positive")
	}
	if c.RetryDelay < 0 {
		problems = append(problems, "retry_delay cannot be negative")
	}
	if c.BatchSize <= 0 {
		problems = append(problems, "batch_size must be positive")
	}
	if c.EmbeddingDimension <= 0 {
		problems = append(problems, "embedding_dimension must be positive")
	}

	switch c.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		problems = append(problems, fmt.Sprintf("unknown provider %q", c.Provider))
	}
	switch c.VectorStore {
	case StoreChromem, StoreQdrant, StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown vector_store %q", c.VectorStore))
	}
	switch c.SessionStore {
	case SessionMemory, SessionRedis:
	default:
		problems = append(problems, fmt.Sprintf("unknown session_store %q", c.SessionStore))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// BackingLocation describes where the configured vector store keeps its data.
func (c *Config) BackingLocation() string {
	switch c.VectorStore {
	case StoreQdrant:
		return fmt.Sprintf("qdrant://%s:%d/%s", c.QdrantHost, c.QdrantPort, c.QdrantCollection)
	case StoreMemory:
		return "memory"
	default:
		return c.BackingStorePath
	}
}

// SlogLevel converts LogLevel to a slog.Level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
