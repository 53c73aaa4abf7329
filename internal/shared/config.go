package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
//
// Credentials never live here; they are discovered from the environment
// namespace at run time.
type Config struct {
	Spotify   SpotifyConfig   `toml:"spotify"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Discovery DiscoveryConfig `toml:"discovery"`
	Prompts   PromptsConfig   `toml:"prompts"`
	Journal   JournalConfig   `toml:"journal"`
}

// SpotifyConfig contains Spotify Web API settings shared by all users.
type SpotifyConfig struct {
	Market          string  `toml:"market"`           // Optional market code for searches, e.g. "GB"
	WindowDays      int     `toml:"window_days"`      // Listening history window
	TimeoutSeconds  int     `toml:"timeout_seconds"`  // Per-call ceiling
	RateLimit       float64 `toml:"rate_limit"`       // Requests per second
	PublicPlaylists bool    `toml:"public_playlists"` // Visibility of created playlists
}

// OpenAIConfig contains model provider settings.
type OpenAIConfig struct {
	BaseURL                string  `toml:"base_url"` // Empty selects the production API
	TextModel              string  `toml:"text_model"`
	ImageModel             string  `toml:"image_model"`
	ImageSize              string  `toml:"image_size"`
	QueryTemperature       float64 `toml:"query_temperature"`
	DescriptionTemperature float64 `toml:"description_temperature"`
	TimeoutSeconds         int     `toml:"timeout_seconds"`
}

// DiscoveryConfig bounds the track discovery mix.
type DiscoveryConfig struct {
	MaxQueries    int `toml:"max_queries"`     // Cap on model-suggested search queries
	PerQueryLimit int `toml:"per_query_limit"` // Results kept per search query
	TargetCount   int `toml:"target_count"`    // Desired playlist size
}

// PromptsConfig points at external prompt template files. Empty paths fall
// back to the embedded defaults.
type PromptsConfig struct {
	QueriesFile     string `toml:"queries_file"`
	DescriptionFile string `toml:"description_file"`
	ArtworkFile     string `toml:"artwork_file"`
}

// JournalConfig contains run journal database settings.
// An empty path disables the journal entirely.
type JournalConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SpotifyTimeout returns the per-call ceiling for Spotify requests.
func (c *Config) SpotifyTimeout() time.Duration {
	return time.Duration(c.Spotify.TimeoutSeconds) * time.Second
}

// OpenAITimeout returns the per-call ceiling for model provider requests.
func (c *Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAI.TimeoutSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
