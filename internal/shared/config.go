package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Catalog  CatalogConfig            `toml:"catalog"`
	Storage  StorageConfig            `toml:"storage"`
	Defaults DefaultsConfig           `toml:"defaults"`
	Feed     FeedConfig               `toml:"feed"`
	Resolver ResolverConfig           `toml:"resolver"`
	Download DownloadConfig           `toml:"download"`
	Profiles map[string]ProfileConfig `toml:"profiles"`
}

// CatalogConfig locates the SQLite catalog.
type CatalogConfig struct {
	Path string `toml:"path"`
}

// StorageConfig contains the on-disk layout for media and manifests.
//
// The folders seed the videos_folder and playlists_folder options when a catalog is first created.
type StorageConfig struct {
	Root            string `toml:"root"`
	VideosFolder    string `toml:"videos_folder"`
	PlaylistsFolder string `toml:"playlists_folder"`
}

// DefaultsConfig is the last fallback for jobs that set neither profile nor quality.
type DefaultsConfig struct {
	Profile     string `toml:"profile"`
	Quality     int    `toml:"quality"`
	XSPFRelPath bool   `toml:"xspf_relpath"`
}

// FeedConfig contains settings for the remote feed API.
type FeedConfig struct {
	BaseURL   string   `toml:"base_url"`
	APIToken  string   `toml:"api_token"`
	PageSize  int      `toml:"page_size"`
	RateLimit float64  `toml:"rate_limit"`
	Timeout   Duration `toml:"timeout"`
}

// ResolverConfig points at the video resolver proxy.
type ResolverConfig struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

// DownloadConfig bounds media transfers.
type DownloadConfig struct {
	Workers  int      `toml:"workers"`
	Attempts int      `toml:"attempts"`
	Timeout  Duration `toml:"timeout"`
}

// ProfileConfig maps a vertical resolution (as a TOML key) to a format code.
type ProfileConfig map[string]int

// Levels converts the string keys of a [ProfileConfig] to integers.
func (p ProfileConfig) Levels() (map[int]int, error) {
	levels := make(map[int]int, len(p))
	for k, v := range p {
		level, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: quality level %q is not a number", ErrInvalidConfig, k)
		}
		levels[level] = v
	}
	return levels, nil
}

// Duration wraps [time.Duration] so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports settings that would make a run misbehave.
func (c *Config) Validate() error {
	switch {
	case c.Catalog.Path == "":
		return fmt.Errorf("%w: catalog.path is empty", ErrInvalidConfig)
	case c.Download.Workers < 1:
		return fmt.Errorf("%w: download.workers must be at least 1", ErrInvalidConfig)
	case c.Download.Attempts < 1:
		return fmt.Errorf("%w: download.attempts must be at least 1", ErrInvalidConfig)
	case c.Feed.PageSize < 1:
		return fmt.Errorf("%w: feed.page_size must be at least 1", ErrInvalidConfig)
	case c.Feed.RateLimit <= 0:
		return fmt.Errorf("%w: feed.rate_limit must be positive", ErrInvalidConfig)
	}
	for name, p := range c.Profiles {
		if _, err := p.Levels(); err != nil {
			return fmt.Errorf("profile %s: %w", name, err)
		}
	}
	return nil
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
