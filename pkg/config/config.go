package config

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml.sample
var configTemplate string

const (
	// DefaultBaseURL is the search backend used when nothing else is configured.
	DefaultBaseURL = "https://turners-search-backend.herokuapp.com/"

	DefaultAutocompleteDelay = 750 * time.Millisecond

	// EnvPrefix prefixes every environment override, e.g. TURNSEARCH_BASE_URL.
	EnvPrefix = "TURNSEARCH"
)

type Config struct {
	BaseURL           string    `toml:"base_url"`
	AutocompleteDelay Duration  `toml:"autocomplete_delay"`
	RequestTimeout    Duration  `toml:"request_timeout"`
	Web               WebConfig `toml:"web"`
}

type WebConfig struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// envOverrides mirrors the settings that may come from the environment.
// Empty values leave the file settings untouched.
type envOverrides struct {
	BaseURL           string        `envconfig:"BASE_URL"`
	AutocompleteDelay time.Duration `envconfig:"AUTOCOMPLETE_DELAY"`
	RequestTimeout    time.Duration `envconfig:"REQUEST_TIMEOUT"`
	WebHost           string        `envconfig:"WEB_HOST"`
	WebPort           string        `envconfig:"WEB_PORT"`
}

func GetDefaultConfig() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		AutocompleteDelay: Duration{DefaultAutocompleteDelay},
		Web: WebConfig{
			Host: "localhost",
			Port: "8080",
		},
	}
}

// LoadConfig reads the TOML file at configPath, fills defaults and applies
// .env and TURNSEARCH_* environment overrides. A missing file is not an
// error.
func LoadConfig(configPath string) (*Config, error) {
	cfg := GetDefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshaling config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	_ = godotenv.Load()

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("processing environment: %w", err)
	}

	if env.BaseURL != "" {
		c.BaseURL = env.BaseURL
	}
	if env.AutocompleteDelay > 0 {
		c.AutocompleteDelay = Duration{env.AutocompleteDelay}
	}
	if env.RequestTimeout > 0 {
		c.RequestTimeout = Duration{env.RequestTimeout}
	}
	if env.WebHost != "" {
		c.Web.Host = env.WebHost
	}
	if env.WebPort != "" {
		c.Web.Port = env.WebPort
	}
	return nil
}

func (c *Config) fillDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.AutocompleteDelay.Duration <= 0 {
		c.AutocompleteDelay = Duration{DefaultAutocompleteDelay}
	}
	if c.Web.Host == "" {
		c.Web.Host = "localhost"
	}
	if c.Web.Port == "" {
		c.Web.Port = "8080"
	}
}

// Validate checks that the base URL is an absolute http(s) URL and that the
// timeout is not negative.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: must be an absolute http(s) URL", c.BaseURL)
	}
	if c.RequestTimeout.Duration < 0 {
		return fmt.Errorf("invalid request_timeout %s: must not be negative", c.RequestTimeout)
	}
	return nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// SaveTemplateConfig writes the commented sample configuration.
func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(configPath, []byte(configTemplate), 0644)
}

// GetConfigDir returns the configuration directory, creating it if needed.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "turnsearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
