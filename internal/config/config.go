package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level uploadkit configuration. Size fields are strings
// (e.g. "5MiB") so they round-trip cleanly through TOML; each is parsed
// lazily by its Resolved* accessor rather than at load time. The request
// timeout is an integer millisecond count (timeout_ms).
type Config struct {
	Endpoint           string       `toml:"endpoint"`
	ChunkSize          string       `toml:"chunk_size"`
	MaxRetries         int          `toml:"max_retries"`
	TimeoutMs          int          `toml:"timeout_ms"`
	ChecksumAlgorithm  string       `toml:"checksum_algorithm"`
	BandwidthLimit     string       `toml:"bandwidth_limit"`
	ProgressPollSecs   int          `toml:"progress_poll_seconds"`
	Headers            []HeaderPair `toml:"headers"`
	Auth               AuthSection  `toml:"auth"`
	SessionDB          string       `toml:"session_db"`
	Logging            LoggingSection `toml:"logging"`
}

// HeaderPair is one entry of the `headers` table, merged into every request.
type HeaderPair struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// AuthSection configures caller-supplied credentials for session creation.
type AuthSection struct {
	Kind       string `toml:"kind"` // "", "basic", "bearer", "api-key"
	Value      string `toml:"value"`
	HeaderName string `toml:"header_name"`
}

// LoggingSection holds slog level and format settings: level and format
// only, since a single-shot CLI has no rotation/retention concerns to
// configure. They are decoded but not applied: uploadctl logs through
// slog.Default() whatever they say.
type LoggingSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "text", "json", or "auto" (the default)
}

// Default option values (architecture §6 Configuration options table).
const (
	DefaultChunkSize         = "5MiB"
	DefaultMaxRetries        = 3
	DefaultTimeoutMs         = 30000
	DefaultChecksumAlgorithm = "sha-256"
	DefaultProgressPollSecs  = 1
)

// Default returns a Config populated with every architecture §6 default.
func Default() *Config {
	return &Config{
		ChunkSize:         DefaultChunkSize,
		MaxRetries:        DefaultMaxRetries,
		TimeoutMs:         DefaultTimeoutMs,
		ChecksumAlgorithm: DefaultChecksumAlgorithm,
		BandwidthLimit:    "0",
		ProgressPollSecs:  DefaultProgressPollSecs,
		Logging:           LoggingSection{Level: "info", Format: "auto"},
	}
}

// Load reads and decodes a TOML config file at path, layering its values
// over Default() so unset fields keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decoding %s: %w", path, err)
	}

	return cfg, nil
}

// ResolvedTimeout returns TimeoutMs as a time.Duration.
func (c *Config) ResolvedTimeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// ResolvedChunkSize parses ChunkSize via ParseSize, falling back to
// DefaultChunkSize's parsed value on an empty string.
func (c *Config) ResolvedChunkSize() (int64, error) {
	size := c.ChunkSize
	if size == "" {
		size = DefaultChunkSize
	}

	return ParseSize(size)
}

// ResolvedBandwidthLimit parses BandwidthLimit (bytes/sec, "0"/"" = unlimited).
func (c *Config) ResolvedBandwidthLimit() (int64, error) {
	return ParseSize(c.BandwidthLimit)
}
