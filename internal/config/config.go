package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

// Config holds the server settings read from the environment
type Config struct {
	Host        string
	Port        int
	StorageType string
	RedisURL    string

	// WordsPath is a word pool file; empty uses the pool cached in storage or the built-in one
	WordsPath string

	HandshakeTimeout      time.Duration
	MaxWordSampleAttempts int

	InboundRate  float64
	InboundBurst int

	LogLevel slog.Level
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Port:                  8080,
		StorageType:           StorageMemory,
		RedisURL:              "redis://localhost:6379",
		HandshakeTimeout:      10 * time.Second,
		MaxWordSampleAttempts: 1000,
		InboundRate:           20,
		InboundBurst:          40,
		LogLevel:              slog.LevelInfo,
	}
}

// Load reads the given .env files (".env" when none are named) and then the environment.
// Missing files are skipped; variables already set in the environment win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup, applying defaults for unset keys
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	p := parser{lookup: lookup}

	p.string("PAINTER_HOST", &cfg.Host)
	p.int("PAINTER_PORT", &cfg.Port)
	p.string("STORAGE_TYPE", &cfg.StorageType)
	p.string("REDIS_URL", &cfg.RedisURL)
	p.string("WORDS_PATH", &cfg.WordsPath)
	p.duration("HANDSHAKE_TIMEOUT", &cfg.HandshakeTimeout)
	p.int("MAX_WORD_SAMPLE_ATTEMPTS", &cfg.MaxWordSampleAttempts)
	p.float("INBOUND_RATE", &cfg.InboundRate)
	p.int("INBOUND_BURST", &cfg.InboundBurst)
	p.level("LOG_LEVEL", &cfg.LogLevel)

	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PAINTER_PORT out of range: %d", c.Port))
	}
	switch c.StorageType {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL required when STORAGE_TYPE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_TYPE must be %q or %q, got %q", StorageMemory, StorageRedis, c.StorageType))
	}
	if c.HandshakeTimeout <= 0 {
		errs = append(errs, errors.New("HANDSHAKE_TIMEOUT must be positive"))
	}
	if c.MaxWordSampleAttempts <= 0 {
		errs = append(errs, errors.New("MAX_WORD_SAMPLE_ATTEMPTS must be positive"))
	}
	if c.InboundRate < 0 {
		errs = append(errs, errors.New("INBOUND_RATE must not be negative"))
	}
	if c.InboundBurst < 0 {
		errs = append(errs, errors.New("INBOUND_BURST must not be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// parser keeps the first conversion error so FromEnv reads top to bottom
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) raw(key string) (string, bool) {
	if p.err != nil {
		return "", false
	}
	v, ok := p.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (p *parser) fail(key, value string, err error) {
	p.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
}

func (p *parser) string(key string, dst *string) {
	if v, ok := p.raw(key); ok {
		*dst = v
	}
}

func (p *parser) int(key string, dst *int) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = n
}

func (p *parser) float(key string, dst *float64) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = f
}

func (p *parser) duration(key string, dst *time.Duration) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = d
}

func (p *parser) level(key string, dst *slog.Level) {
	v, ok := p.raw(key)
	if !ok {
		return
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		p.fail(key, v, err)
		return
	}
	*dst = lvl
}
