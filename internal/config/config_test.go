package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 3, cfg.TopK)
	assert.InDelta(t, 0.6, cfg.SimilarityThreshold, 1e-9)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, "chroma", cfg.BackingStorePath)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("SIMILARITY_THRESHOLD", "0.25")
	t.Setenv("LLM_MODEL", "mistral")
	t.Setenv("CHROMA_PATH", "/var/lib/rag")
	t.Setenv("RETRY_DELAY", "250ms")
	t.Setenv("SERVER_MODE", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.InDelta(t, 0.25, cfg.SimilarityThreshold, 1e-9)
	assert.Equal(t, "mistral", cfg.GenerationModel)
	assert.Equal(t, "/var/lib/rag", cfg.BackingStorePath)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.True(t, cfg.ServerMode)
}

func TestLoad_EmptyEnvKeepsDefault(t *testing.T) {
	t.Setenv("TOP_K", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.TopK)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "chunk_size: 800\nchunk_overlap: 100\ntop_k: 5\nvector_store: memory\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TOP_K", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
	assert.Equal(t, 7, cfg.TopK, "environment wins over file")
	assert.Equal(t, StoreMemory, cfg.VectorStore)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.ChunkSize)
}

func TestLoad_RejectsOverlapNotSmallerThanSize(t *testing.T) {
	t.Setenv("CHUNK_SIZE", "200")
	t.Setenv("CHUNK_OVERLAP", "200")

	_, err := Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "chunk_overlap")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero top_k", func(c *Config) { c.TopK = 0 }, "top_k"},
		{"threshold above one", func(c *Config) { c.SimilarityThreshold = 1.5 }, "similarity_threshold"},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, "max_retries"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"unknown provider", func(c *Config) { c.Provider = "bard" }, "provider"},
		{"unknown store", func(c *Config) { c.VectorStore = "faiss" }, "vector_store"},
		{"unknown session store", func(c *Config) { c.SessionStore = "memcached" }, "session_store"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestBackingLocation(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "chroma", cfg.BackingLocation())

	cfg.VectorStore = StoreQdrant
	assert.Equal(t, "qdrant://localhost:6334/documents", cfg.BackingLocation())

	cfg.VectorStore = StoreMemory
	assert.Equal(t, "memory", cfg.BackingLocation())
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	cfg.LogLevel = "DEBUG"
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	cfg.LogLevel = "warn"
	assert.Equal(t, slog.LevelWarn, cfg.SlogLevel())
}
