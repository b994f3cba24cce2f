// Package config loads the metricgen configuration file: registry
// inputs, output settings, registry repositories for discovery and the
// watch daemon block.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file name commands look for when no
// --config flag is given.
const DefaultFile = "metricgen.yaml"

// Config is the application configuration.
type Config struct {
	Inputs       []string      `yaml:"inputs"`
	Output       OutputConfig  `yaml:"output"`
	Options      OptionsConfig `yaml:"options"`
	Repositories []Repository  `yaml:"repositories,omitempty"`
	Watch        WatchConfig   `yaml:"watch"`
}

// OutputConfig selects where and in which formats generated files land.
type OutputConfig struct {
	Directory string   `yaml:"directory"`
	Formats   []string `yaml:"formats"`
}

// OptionsConfig carries parser and renderer options.
type OptionsConfig struct {
	AllowReserved  bool   `yaml:"allow_reserved"`
	Namespace      string `yaml:"namespace,omitempty"`
	GleanNamespace string `yaml:"glean_namespace,omitempty"`
}

// Repository is a Git repository the discover command pulls registry
// files from.
type Repository struct {
	Name   string      `yaml:"name"`
	URL    string      `yaml:"url"`
	Branch string      `yaml:"branch,omitempty"`
	Paths  []string    `yaml:"paths,omitempty"`
	Auth   *AuthConfig `yaml:"auth,omitempty"`
}

// AuthConfig is the authentication block of a repository.
type AuthConfig struct {
	Type     string `yaml:"type"` // "token", "basic", "ssh" or "none"
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
	// KeyPath is the private key for ssh auth. Empty means the default
	// key under the user's .ssh directory.
	KeyPath string `yaml:"key_path,omitempty"`
}

// WatchConfig configures the watch daemon. Durations are kept as
// strings in the file and parsed on access, with defaults for unset or
// unparsable values.
type WatchConfig struct {
	Debounce          string     `yaml:"debounce"`
	ReconcileInterval string     `yaml:"reconcile_interval"`
	Listen            string     `yaml:"listen"`
	HistoryDB         string     `yaml:"history_db"`
	NATS              NATSConfig `yaml:"nats"`
}

// NATSConfig configures build event publishing.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// DebounceDuration returns the parsed debounce window.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// ReconcileDuration returns the parsed reconcile interval.
func (w WatchConfig) ReconcileDuration() time.Duration {
	d, err := time.ParseDuration(w.ReconcileInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Load reads and validates the configuration file. A .env or .env.local
// file in the working directory is loaded first so the YAML can
// reference its variables through ${VAR} expansion.
func Load(path string) (*Config, error) {
	loadDotenv()

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotenv loads the first environment file found. godotenv never
// overrides variables already present in the process environment.
func loadDotenv() {
	for _, name := range []string{".env", ".env.local"} {
		if err := godotenv.Load(name); err == nil {
			slog.Debug("Loaded environment file", slog.String("path", name))
			return
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Output.Directory == "" {
		c.Output.Directory = "./generated"
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{"kotlin"}
	}
	for i := range c.Repositories {
		if c.Repositories[i].Branch == "" {
			c.Repositories[i].Branch = "main"
		}
		if len(c.Repositories[i].Paths) == 0 {
			c.Repositories[i].Paths = []string{"metrics.yaml"}
		}
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = "2s"
	}
	if c.Watch.ReconcileInterval == "" {
		c.Watch.ReconcileInterval = "5m"
	}
	if c.Watch.Listen == "" {
		c.Watch.Listen = ":8790"
	}
	if c.Watch.HistoryDB == "" {
		c.Watch.HistoryDB = "metricgen-history.db"
	}
	if c.Watch.NATS.URL == "" {
		c.Watch.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.Watch.NATS.Subject == "" {
		c.Watch.NATS.Subject = "metricgen.builds"
	}
}

// Validate checks the configuration for structural mistakes. It returns
// the first problem found.
func (c *Config) Validate() error {
	if c.Output.Directory == "" {
		return errors.New("output directory cannot be empty")
	}
	if len(c.Output.Formats) == 0 {
		return errors.New("at least one output format must be configured")
	}
	seenFormats := make(map[string]bool, len(c.Output.Formats))
	for _, format := range c.Output.Formats {
		if seenFormats[format] {
			return fmt.Errorf("duplicate output format: %s", format)
		}
		seenFormats[format] = true
	}

	repoNames := make(map[string]bool, len(c.Repositories))
	for i := range c.Repositories {
		repo := &c.Repositories[i]
		if repo.Name == "" {
			return errors.New("repository name cannot be empty")
		}
		if repoNames[repo.Name] {
			return fmt.Errorf("duplicate repository name: %s", repo.Name)
		}
		repoNames[repo.Name] = true
		if repo.URL == "" {
			return fmt.Errorf("repository %s has no url", repo.Name)
		}
		if err := repo.Auth.validate(repo.Name); err != nil {
			return err
		}
	}

	return c.Watch.validate()
}

func (a *AuthConfig) validate(repo string) error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case "token":
		if a.Token == "" {
			return fmt.Errorf("repository %s: token auth requires a token", repo)
		}
	case "basic":
		if a.Username == "" || a.Password == "" {
			return fmt.Errorf("repository %s: basic auth requires username and password", repo)
		}
	case "ssh", "", "none":
	default:
		return fmt.Errorf("repository %s: unsupported auth type %q", repo, a.Type)
	}
	return nil
}

func (w *WatchConfig) validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"watch.debounce", w.Debounce},
		{"watch.reconcile_interval", w.ReconcileInterval},
	} {
		if field.value == "" {
			continue
		}
		d, err := time.ParseDuration(field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", field.name)
		}
	}
	if w.NATS.Enabled && w.NATS.URL == "" {
		return errors.New("watch.nats.url cannot be empty when nats is enabled")
	}
	if w.NATS.Enabled && w.NATS.Subject == "" {
		return errors.New("watch.nats.subject cannot be empty when nats is enabled")
	}
	return nil
}

// Example returns the configuration the init command scaffolds.
func Example() *Config {
	return &Config{
		Inputs: []string{"metrics.yaml", "pings.yaml"},
		Output: OutputConfig{
			Directory: "./generated",
			Formats:   []string{"kotlin"},
		},
		Options: OptionsConfig{
			AllowReserved:  false,
			Namespace:      "GleanMetrics",
			GleanNamespace: "mozilla.components.service.glean",
		},
		Repositories: []Repository{{
			Name:   "product-a",
			URL:    "https://github.com/example/product-a.git",
			Branch: "main",
			Paths:  []string{"app/metrics.yaml"},
			Auth:   &AuthConfig{Type: "token", Token: "YOUR_FORGE_TOKEN"},
		}},
		Watch: WatchConfig{
			Debounce:          "2s",
			ReconcileInterval: "5m",
			Listen:            ":8790",
			HistoryDB:         "metricgen-history.db",
			NATS: NATSConfig{
				Enabled: false,
				URL:     "nats://127.0.0.1:4222",
				Subject: "metricgen.builds",
			},
		},
	}
}

// Init writes an example configuration file for the user to edit.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	data, err := yaml.Marshal(Example())
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	// #nosec G306 -- scaffolded config is meant to be user editable
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
