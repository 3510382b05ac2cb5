package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable consumed by the acquisition engine
type Config struct {
	HTTP      HTTPConfig      `yaml:"http" toml:"http" json:"http"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`
	Download  DownloadConfig  `yaml:"download" toml:"download" json:"download"`
	Search    SearchConfig    `yaml:"search" toml:"search" json:"search"`
	Larger    LargerConfig    `yaml:"larger" toml:"larger" json:"larger"`
	More      MoreConfig      `yaml:"more" toml:"more" json:"more"`
	Sequence  SequenceConfig  `yaml:"sequence" toml:"sequence" json:"sequence"`
	Output    OutputConfig    `yaml:"output" toml:"output" json:"output"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging" json:"logging"`
}

// HTTPConfig holds transport settings shared by every request
type HTTPConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" toml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout" toml:"read_timeout" json:"read_timeout"`
	UserAgent      string        `yaml:"user_agent" toml:"user_agent" json:"user_agent"`
	// MaxBodySize caps a response body in bytes. 0 disables the cap.
	MaxBodySize int64 `yaml:"max_body_size" toml:"max_body_size" json:"max_body_size"`
}

// RateLimitConfig throttles outgoing requests. Zero disables the limiter.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" toml:"requests_per_minute" json:"requests_per_minute"`
}

// DownloadConfig holds the validator and cooldown settings of the downloader
type DownloadConfig struct {
	MinFileSize  int64         `yaml:"min_file_size" toml:"min_file_size" json:"min_file_size"`
	SniffHTML    bool          `yaml:"sniff_html" toml:"sniff_html" json:"sniff_html"`
	MinCooldown  time.Duration `yaml:"min_cooldown" toml:"min_cooldown" json:"min_cooldown"`
	MaxCooldown  time.Duration `yaml:"max_cooldown" toml:"max_cooldown" json:"max_cooldown"`
	BlogPrefixes []string      `yaml:"blog_prefixes" toml:"blog_prefixes" json:"blog_prefixes"`
	BlogReferer  string        `yaml:"blog_referer" toml:"blog_referer" json:"blog_referer"`
	ImageAccept  string        `yaml:"image_accept" toml:"image_accept" json:"image_accept"`
}

// SearchConfig holds the reverse-image-search endpoint and its scraping markers.
// The markers track undocumented upstream markup, so they are configuration.
type SearchConfig struct {
	Endpoint       string `yaml:"endpoint" toml:"endpoint" json:"endpoint"`
	UploadField    string `yaml:"upload_field" toml:"upload_field" json:"upload_field"`
	LinkText       string `yaml:"link_text" toml:"link_text" json:"link_text"`
	LinkPrefix     string `yaml:"link_prefix" toml:"link_prefix" json:"link_prefix"`
	ScriptMarker   string `yaml:"script_marker" toml:"script_marker" json:"script_marker"`
	CandidateRegex string `yaml:"candidate_regex" toml:"candidate_regex" json:"candidate_regex"`
}

// LargerConfig holds the selection ratios of the "find larger copies" strategy
type LargerConfig struct {
	DimensionRatio  float64 `yaml:"dimension_ratio" toml:"dimension_ratio" json:"dimension_ratio"`
	FilesizeRatio   float64 `yaml:"filesize_ratio" toml:"filesize_ratio" json:"filesize_ratio"`
	AttentionSubdir string  `yaml:"attention_subdir" toml:"attention_subdir" json:"attention_subdir"`
}

// MoreConfig holds the sequence-mining limits
type MoreConfig struct {
	MinDimension  int `yaml:"min_dimension" toml:"min_dimension" json:"min_dimension"`
	LowerMargin   int `yaml:"lower_margin" toml:"lower_margin" json:"lower_margin"`
	UpperMargin   int `yaml:"upper_margin" toml:"upper_margin" json:"upper_margin"`
	MaxSpan       int `yaml:"max_span" toml:"max_span" json:"max_span"`
	FailThreshold int `yaml:"fail_threshold" toml:"fail_threshold" json:"fail_threshold"`
}

// SequenceConfig holds defaults for user-submitted sequence tasks
type SequenceConfig struct {
	FailThreshold int `yaml:"fail_threshold" toml:"fail_threshold" json:"fail_threshold"`
}

// OutputConfig holds destination settings
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" toml:"base_directory" json:"base_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" toml:"level" json:"level"`
	File  string `yaml:"file" toml:"file" json:"file"`
}

// DefaultCandidateRegex matches ["url", w, h] fragments in the sizes page scripts
const DefaultCandidateRegex = `\[\s*"(https?:[^"]+)"\s*,([^\[\]]*)\]`

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    30 * time.Second,
			MaxBodySize:    100 << 20,
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
		},
		Download: DownloadConfig{
			MinFileSize:  5 * 1024,
			SniffHTML:    true,
			MinCooldown:  500 * time.Millisecond,
			MaxCooldown:  1500 * time.Millisecond,
			BlogPrefixes: []string{"tumblr_"},
			BlogReferer:  "https://www.tumblr.com/",
			ImageAccept:  "image/webp,image/apng,image/*,*/*;q=0.8",
		},
		Search: SearchConfig{
			Endpoint:       "https://www.google.com/searchbyimage/upload",
			UploadField:    "encoded_image",
			LinkText:       "All sizes",
			LinkPrefix:     "/search?",
			ScriptMarker:   "AF_initDataCallback",
			CandidateRegex: DefaultCandidateRegex,
		},
		Larger: LargerConfig{
			DimensionRatio:  1.05,
			FilesizeRatio:   1.0,
			AttentionSubdir: "attention",
		},
		More: MoreConfig{
			MinDimension:  300,
			LowerMargin:   5,
			UpperMargin:   20,
			MaxSpan:       500,
			FailThreshold: 5,
		},
		Sequence: SequenceConfig{
			FailThreshold: 10,
		},
		Output: OutputConfig{
			BaseDirectory: "./downloads",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overrides values from IMGHARVEST_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("IMGHARVEST_USER_AGENT"); v != "" {
		c.HTTP.UserAgent = v
	}
	if v := os.Getenv("IMGHARVEST_CONNECT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGHARVEST_CONNECT_TIMEOUT: %w", err))
		} else {
			c.HTTP.ConnectTimeout = d
		}
	}
	if v := os.Getenv("IMGHARVEST_READ_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGHARVEST_READ_TIMEOUT: %w", err))
		} else {
			c.HTTP.ReadTimeout = d
		}
	}
	if v := os.Getenv("IMGHARVEST_MAX_BODY_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGHARVEST_MAX_BODY_SIZE: %w", err))
		} else {
			c.HTTP.MaxBodySize = n
		}
	}
	if v := os.Getenv("IMGHARVEST_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("IMGHARVEST_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}
	if v := os.Getenv("IMGHARVEST_SEARCH_ENDPOINT"); v != "" {
		c.Search.Endpoint = v
	}
	if v := os.Getenv("IMGHARVEST_OUTPUT_DIR"); v != "" {
		c.Output.BaseDirectory = v
	}
	if v := os.Getenv("IMGHARVEST_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML or TOML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".imgharvest.yaml",
		".imgharvest.yml",
		".imgharvest.toml",
		filepath.Join(home, ".config", "imgharvest", "config.yaml"),
		filepath.Join(home, ".config", "imgharvest", "config.toml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("connect timeout must be positive"))
	}
	if c.HTTP.ReadTimeout <= 0 {
		errs = append(errs, errors.New("read timeout must be positive"))
	}
	if c.HTTP.MaxBodySize < 0 {
		errs = append(errs, errors.New("max body size cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}

	if c.Download.MinFileSize < 0 {
		errs = append(errs, errors.New("min file size cannot be negative"))
	}
	if c.Download.MinCooldown < 0 || c.Download.MaxCooldown < c.Download.MinCooldown {
		errs = append(errs, errors.New("cooldown range must satisfy 0 <= min <= max"))
	}

	if c.Search.Endpoint == "" {
		errs = append(errs, errors.New("search endpoint is required"))
	}
	if c.Search.UploadField == "" {
		errs = append(errs, errors.New("search upload field is required"))
	}
	if c.Search.LinkText == "" || c.Search.ScriptMarker == "" {
		errs = append(errs, errors.New("search markers are required"))
	}
	if _, err := regexp.Compile(c.Search.CandidateRegex); err != nil {
		errs = append(errs, fmt.Errorf("invalid candidate regex: %w", err))
	}

	if c.Larger.DimensionRatio < 1 {
		errs = append(errs, errors.New("larger dimension ratio must be >= 1"))
	}
	if c.Larger.FilesizeRatio < 0 {
		errs = append(errs, errors.New("larger filesize ratio cannot be negative"))
	}
	if c.Larger.AttentionSubdir == "" || strings.ContainsAny(c.Larger.AttentionSubdir, `/\`) {
		errs = append(errs, errors.New("attention subdir must be a plain folder name"))
	}

	if c.More.MinDimension < 0 || c.More.LowerMargin < 0 || c.More.UpperMargin < 0 {
		errs = append(errs, errors.New("more dimension and margins cannot be negative"))
	}
	if c.More.MaxSpan <= 0 {
		errs = append(errs, errors.New("more max span must be positive"))
	}
	if c.More.FailThreshold < 0 || c.Sequence.FailThreshold < 0 {
		errs = append(errs, errors.New("fail thresholds cannot be negative"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeFlags applies command line overrides. Unknown keys are ignored.
func (c *Config) MergeFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.BaseDirectory = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["fail-threshold"].(int); ok && v >= 0 {
		c.Sequence.FailThreshold = v
	}
	if v, ok := flags["endpoint"].(string); ok && v != "" {
		c.Search.Endpoint = v
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment > .env file > config file > defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgharvest.env"))

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}
