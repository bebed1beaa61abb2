package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds all runtime configuration
type Config struct {
	HTTP   HTTPConfig   `yaml:"http"`
	Cache  CacheConfig  `yaml:"cache"`
	Graph  GraphConfig  `yaml:"graph"`
	Sample SampleConfig `yaml:"sample"`
	LLM    LLMConfig    `yaml:"llm"`
	Output OutputConfig `yaml:"output"`
}

// HTTPConfig controls policy-source fetching
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout"`
	UserAgent     string        `yaml:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
	InsecureTLS   bool          `yaml:"insecure_tls"`
	IgnoreRobots  bool          `yaml:"ignore_robots"`
	HTTPProxy     string        `yaml:"http_proxy"`      // Empty falls back to environment
	HTTPSProxy    string        `yaml:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy"`
	RatePerSecond float64       `yaml:"rate_per_second"` // Fetch rate applied per source host
	Burst         int           `yaml:"burst"`
}

// CacheConfig controls the layered document/schema cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// GraphConfig controls graph-store access and traversal bounds
type GraphConfig struct {
	URI           string  `yaml:"uri"`             // bolt/neo4j URI; empty disables the live adapter
	Username      string  `yaml:"username"`
	Password      string  `yaml:"password"`
	Database      string  `yaml:"database"`
	MaxDepth      int     `yaml:"max_depth"`       // Traversal depth ceiling
	MaxNodes      int     `yaml:"max_nodes"`       // Traversal node-count ceiling
	Workers       int     `yaml:"workers"`         // Concurrent branches per level
	RatePerSecond float64 `yaml:"rate_per_second"` // Read rate applied per graph host
}

// SampleConfig controls the external sample-data executor
type SampleConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Records int    `yaml:"records"` // Preview row count, clamped to 1..10
}

// LLMConfig controls the optional grouping assist
type LLMConfig struct {
	Provider      string `yaml:"provider"` // openai, anthropic, ollama; empty disables
	Model         string `yaml:"model"`
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Timeout       int    `yaml:"timeout"` // Seconds
	StrictOutline bool   `yaml:"strict_outline"`
	MaxTokens     int    `yaml:"max_tokens"`
}

// OutputConfig controls report rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose"`
	IncludeFooter bool `yaml:"include_footer"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:       2 * time.Minute,
			UserAgent:     "Accord/0.3 (+https://github.com/accordhq/accord)",
			MaxBodyBytes:  2_000_000,
			RatePerSecond: 2,
			Burst:         1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       defaultCacheDir(),
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Graph: GraphConfig{
			Database:      "neo4j",
			MaxDepth:      10,
			MaxNodes:      250,
			Workers:       4,
			RatePerSecond: 10,
		},
		Sample: SampleConfig{
			Driver:  "postgres",
			Records: 3,
		},
		LLM: LLMConfig{
			Provider:      "", // Disabled by default
			Timeout:       30,
			StrictOutline: true,
			MaxTokens:     1500,
		},
		Output: OutputConfig{
			IncludeFooter: true,
		},
	}
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".accord-cache"
	}
	return filepath.Join(home, ".accord", "cache")
}
