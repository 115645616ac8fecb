package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_PopulatesArchitectureDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.Equal(t, DefaultChecksumAlgorithm, cfg.ChecksumAlgorithm)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uploadctl.toml")
	content := `
endpoint = "https://uploads.example.com/sessions"
chunk_size = "10MiB"
max_retries = 5

[auth]
kind = "bearer"
value = "tok-abc"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://uploads.example.com/sessions", cfg.Endpoint)
	assert.Equal(t, "10MiB", cfg.ChunkSize)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "bearer", cfg.Auth.Kind)
	assert.Equal(t, "tok-abc", cfg.Auth.Value)
	assert.Equal(t, DefaultChecksumAlgorithm, cfg.ChecksumAlgorithm) // untouched field keeps default
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid toml"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestResolvedChunkSize_FallsBackToDefault(t *testing.T) {
	cfg := &Config{}
	size, err := cfg.ResolvedChunkSize()
	require.NoError(t, err)
	assert.Equal(t, int64(5*1024*1024), size)
}

func TestResolvedChunkSize_ParsesConfiguredValue(t *testing.T) {
	cfg := &Config{ChunkSize: "1MiB"}
	size, err := cfg.ResolvedChunkSize()
	require.NoError(t, err)
	assert.Equal(t, int64(1_048_576), size)
}

func TestResolvedBandwidthLimit_EmptyIsUnlimited(t *testing.T) {
	cfg := &Config{}
	limit, err := cfg.ResolvedBandwidthLimit()
	require.NoError(t, err)
	assert.Equal(t, int64(0), limit)
}

func TestResolvedTimeout(t *testing.T) {
	cfg := &Config{TimeoutMs: 2500}
	assert.Equal(t, int64(2500), cfg.ResolvedTimeout().Milliseconds())
}
