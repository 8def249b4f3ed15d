package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Sentinel validation errors.
var (
	ErrInvalidFormat    = errors.New("invalid output format")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidTTL       = errors.New("cache TTL must not be negative")
	ErrUnknownKey       = errors.New("unknown config key")
	ErrConfigExists     = errors.New("config file already exists")
)

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "yaml", "markdown"}

const (
	envPrefix         = "PRCHANGES"
	defaultTTLSeconds = 7 * 24 * 60 * 60
	redacted          = "********"
)

// Config represents the prchanges configuration.
type Config struct {
	Format    string        `mapstructure:"format" yaml:"format"`
	Include   []string      `mapstructure:"include" yaml:"include"`
	Exclude   []string      `mapstructure:"exclude" yaml:"exclude"`
	ShowPatch bool          `mapstructure:"show_patch" yaml:"show_patch"`
	WordDiff  bool          `mapstructure:"word_diff" yaml:"word_diff"`
	Remote    string        `mapstructure:"remote" yaml:"remote"`
	GitHub    GitHubConfig  `mapstructure:"github" yaml:"github"`
	Cache     CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Redact    RedactConfig  `mapstructure:"redact" yaml:"redact"`
	Logging   LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// GitHubConfig holds GitHub API settings.
type GitHubConfig struct {
	Token  string `mapstructure:"token" yaml:"token,omitempty"`
	APIURL string `mapstructure:"api_url" yaml:"api_url"`
	Owner  string `mapstructure:"owner" yaml:"owner,omitempty"`
	Repo   string `mapstructure:"repo" yaml:"repo,omitempty"`
}

// CacheConfig controls caching behavior.
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir        string `mapstructure:"dir" yaml:"dir,omitempty"`
	TTLSeconds int    `mapstructure:"ttl_seconds" yaml:"ttl_seconds"`
}

// RedactConfig controls secret masking in patch bodies.
type RedactConfig struct {
	Secrets bool     `mapstructure:"secrets" yaml:"secrets"`
	Paths   []string `mapstructure:"paths" yaml:"paths"`
}

// LoggingConfig controls the logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// keyKind tells Set how to parse a value.
type keyKind int

const (
	kindString keyKind = iota
	kindBool
	kindInt
	kindList
)

// keys lists every settable key.
var keys = map[string]keyKind{
	"format":            kindString,
	"include":           kindList,
	"exclude":           kindList,
	"show_patch":        kindBool,
	"word_diff":         kindBool,
	"remote":            kindString,
	"github.token":      kindString,
	"github.api_url":    kindString,
	"github.owner":      kindString,
	"github.repo":       kindString,
	"cache.enabled":     kindBool,
	"cache.dir":         kindString,
	"cache.ttl_seconds": kindInt,
	"redact.secrets":    kindBool,
	"redact.paths":      kindList,
	"logging.level":     kindString,
	"logging.format":    kindString,
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("format", "text")
	v.SetDefault("include", []string{"**/*"})
	v.SetDefault("exclude", []string{})
	v.SetDefault("show_patch", false)
	v.SetDefault("word_diff", false)
	v.SetDefault("remote", "origin")

	v.SetDefault("github.token", "")
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.ttl_seconds", defaultTTLSeconds)

	v.SetDefault("redact.secrets", true)
	v.SetDefault("redact.paths", []string{"**/.env", "**/*.pem", "**/*.key"})

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
}

// Default returns a Config with all defaults applied.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

// ConfigDir returns the platform-appropriate config directory for prchanges.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "prchanges"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "prchanges"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "prchanges"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "prchanges"), nil
	default:
		return filepath.Join(home, ".config", "prchanges"), nil
	}
}

// ConfigPath returns the full path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func resolvePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	return ConfigPath()
}

// Load builds the effective config by merging: defaults <- file <- env <-
// overrides. An empty path selects the default config file; a missing file is
// not an error. Overrides are keyed like the config file ("cache.enabled").
func Load(path string, overrides map[string]any) (*Config, error) {
	path, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("github.token", envPrefix+"_GITHUB_TOKEN", "GITHUB_TOKEN"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}
	if err := v.BindEnv("github.api_url", envPrefix+"_GITHUB_API_URL", "GITHUB_API_URL"); err != nil {
		return nil, fmt.Errorf("binding env: %w", err)
	}

	if err := readFile(v, path); err != nil {
		return nil, err
	}

	for key, value := range overrides {
		if _, ok := keys[key]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func readFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Validate checks enumerated and numeric settings.
func Validate(cfg *Config) error {
	if !slices.Contains(Formats, cfg.Format) {
		return fmt.Errorf("%w: %q (want one of %s)", ErrInvalidFormat, cfg.Format, strings.Join(Formats, ", "))
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.Logging.Format)
	}
	if cfg.Cache.TTLSeconds < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTTL, cfg.Cache.TTLSeconds)
	}
	return nil
}

// Init writes a config file holding the defaults and returns its path.
func Init(path string, force bool) (string, error) {
	path, err := resolvePath(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)
	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}
	return path, nil
}

// Set updates a single key in the config file, creating the file if needed.
func Set(path, key, value string) error {
	kind, ok := keys[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	parsed, err := parseValue(key, kind, value)
	if err != nil {
		return err
	}

	path, err = resolvePath(path)
	if err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	if err := readFile(v, path); err != nil {
		return err
	}
	v.Set(key, parsed)

	// Validate the result merged over defaults before persisting it.
	merged := viper.New()
	setDefaults(merged)
	if err := merged.MergeConfigMap(v.AllSettings()); err != nil {
		return fmt.Errorf("merging config: %w", err)
	}
	var cfg Config
	if err := merged.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func parseValue(key string, kind keyKind, value string) (any, error) {
	switch kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be a boolean: %w", key, err)
		}
		return b, nil
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return n, nil
	case kindList:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

// Show renders the effective config as YAML with the token masked.
func Show(cfg Config) ([]byte, error) {
	if cfg.GitHub.Token != "" {
		cfg.GitHub.Token = redacted
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
