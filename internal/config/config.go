package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Site     SiteConfig   `yaml:"site"`
	Source   SourceConfig `yaml:"source"`
	Output   OutputConfig `yaml:"output"`
	Render   RenderConfig `yaml:"render"`
	Embed    EmbedConfig  `yaml:"embed"`
	Feed     FeedConfig   `yaml:"feed"`
	GitDates bool         `yaml:"git_dates"`
}

// SiteConfig holds site-wide identity used by the index page and the feed.
type SiteConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
	Author      string `yaml:"author,omitempty"`
}

// SourceConfig describes where articles come from and how they are recognized.
type SourceConfig struct {
	Directory string `yaml:"directory"`
	// Extensions lists file extensions treated as markdown articles. The empty
	// string matches extensionless files.
	Extensions []string `yaml:"extensions,omitempty"`
}

// OutputConfig represents output configuration
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Clean     bool   `yaml:"clean"` // Clean output directory before build
}

// RenderConfig controls markdown-to-HTML conversion.
type RenderConfig struct {
	HighlightStyle string `yaml:"highlight_style,omitempty"`
	HardWraps      bool   `yaml:"hard_wraps,omitempty"`
}

// EmbedConfig controls the self-contained article variant.
type EmbedConfig struct {
	MaxImageBytes int64  `yaml:"max_image_bytes,omitempty"`
	FetchTimeout  string `yaml:"fetch_timeout,omitempty"` // Go duration string, e.g. "10s"
	AllowRemote   *bool  `yaml:"allow_remote,omitempty"`
}

// FeedConfig controls RSS generation.
type FeedConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	Limit   int   `yaml:"limit,omitempty"`
}

// Default values applied by Load when the file leaves fields unset.
const (
	DefaultSiteTitle     = "Random writings"
	DefaultBaseURL       = "http://localhost/"
	DefaultOutputDir     = "./site"
	DefaultMaxImageBytes = 2 << 20
	DefaultFetchTimeout  = "10s"
	DefaultHighlight     = "github"
)

// DefaultExtensions lists extensions recognized as articles when the config
// does not say otherwise. The original setup names article files without an
// extension, so "" is included.
func DefaultExtensions() []string { return []string{"", ".md", ".markdown"} }

// Load loads configuration from the specified file
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		// Don't fail if .env doesn't exist, just log it
		fmt.Fprintf(os.Stderr, "Note: .env file not found or couldn't be loaded: %v\n", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Site.Title == "" {
		c.Site.Title = DefaultSiteTitle
	}
	if c.Site.BaseURL == "" {
		c.Site.BaseURL = DefaultBaseURL
	}
	if c.Source.Directory == "" {
		c.Source.Directory = "."
	}
	if len(c.Source.Extensions) == 0 {
		c.Source.Extensions = DefaultExtensions()
	}
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDir
		c.Output.Clean = true
	}
	if c.Render.HighlightStyle == "" {
		c.Render.HighlightStyle = DefaultHighlight
	}
	if c.Embed.MaxImageBytes == 0 {
		c.Embed.MaxImageBytes = DefaultMaxImageBytes
	}
	if c.Embed.FetchTimeout == "" {
		c.Embed.FetchTimeout = DefaultFetchTimeout
	}
}

// Validate checks configuration consistency after defaults are applied.
func (c *Config) Validate() error {
	if c.Source.Directory == "" {
		return fmt.Errorf("source.directory must not be empty")
	}
	src, err := os.Stat(c.Source.Directory)
	if err == nil && !src.IsDir() {
		return fmt.Errorf("source.directory is not a directory: %s", c.Source.Directory)
	}
	if sameDir(c.Source.Directory, c.Output.Directory) {
		return fmt.Errorf("output.directory must differ from source.directory")
	}
	if c.Feed.Limit < 0 {
		return fmt.Errorf("feed.limit must not be negative")
	}
	if c.Embed.MaxImageBytes < 0 {
		return fmt.Errorf("embed.max_image_bytes must not be negative")
	}
	if c.Embed.FetchTimeout != "" {
		if _, err := time.ParseDuration(c.Embed.FetchTimeout); err != nil {
			return fmt.Errorf("embed.fetch_timeout is not a valid duration: %w", err)
		}
	}
	return nil
}

// FetchTimeout returns the parsed remote fetch timeout, falling back to the
// default on a missing or malformed value.
func (c *Config) FetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Embed.FetchTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultFetchTimeout)
	}
	return d
}

// FeedEnabled reports whether RSS generation is on (default: on).
func (c *Config) FeedEnabled() bool {
	return c.Feed.Enabled == nil || *c.Feed.Enabled
}

// RemoteAllowed reports whether remote images may be fetched for embedding
// (default: allowed).
func (c *Config) RemoteAllowed() bool {
	return c.Embed.AllowRemote == nil || *c.Embed.AllowRemote
}

func sameDir(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return a == b
	}
	bi, err := os.Stat(b)
	if err != nil {
		return a == b
	}
	return os.SameFile(ai, bi)
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := `# mdsite configuration
site:
  title: "Random writings"
  description: "Random ramblings by a computer engineer"
  base_url: "https://example.org/"
  author: "you@example.org"

source:
  directory: "./articles"
  # extensions: ["", ".md", ".markdown"]

output:
  directory: "./site"
  clean: true

render:
  highlight_style: "github"

embed:
  max_image_bytes: 2097152
  fetch_timeout: 10s
  allow_remote: true

feed:
  enabled: true
  limit: 0

# Use the last git commit time of a file as its publication date when the
# frontmatter has none.
git_dates: false
`
	if err := os.WriteFile(configPath, []byte(example), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
