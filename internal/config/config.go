// Package config handles the XDG configuration directory, config.yaml,
// environment overrides and the stored credentials.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"gopkg.in/yaml.v3"

	"todoctl/internal/query"
)

const (
	// AppName is the application directory name.
	AppName = "todoctl"

	// ConfigFile is the settings filename.
	ConfigFile = "config.yaml"

	// OAuthClientFile is the OAuth client credentials filename.
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename.
	TokenFile = "token.json"
)

// Defaults.
const (
	DefaultBaseURL           = "http://localhost:8000"
	DefaultRequestTimeout    = 10 * time.Second
	DefaultDeleteConcurrency = 8
	DefaultLogLevel          = "warn"
	DefaultLogFormat         = "text"
)

// Environment variables that override config.yaml.
const (
	EnvBaseURL  = "TODOCTL_BASE_URL"
	EnvPageSize = "TODOCTL_PAGE_SIZE"
	EnvLogLevel = "TODOCTL_LOG_LEVEL"
)

// ErrInvalid is returned when a setting fails validation.
var ErrInvalid = errors.New("invalid config")

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// BaseURL is the root URL of the task store.
	BaseURL string

	// PageSize is the initial page size of list views.
	PageSize int

	// RequestTimeout bounds each store request.
	RequestTimeout time.Duration

	// DeleteConcurrency bounds the deletes in flight during a bulk delete.
	DeleteConcurrency int

	LogLevel  string
	LogFormat string
}

// fileConfig mirrors config.yaml. Zero values keep the defaults.
type fileConfig struct {
	BaseURL           string `yaml:"base_url"`
	PageSize          int    `yaml:"page_size"`
	RequestTimeout    string `yaml:"request_timeout"`
	DeleteConcurrency int    `yaml:"delete_concurrency"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
}

// New creates a Config with default settings and the default or specified
// config directory. If configDir is empty, uses XDG_CONFIG_HOME/todoctl or
// $HOME/.config/todoctl.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:               dir,
		BaseURL:           DefaultBaseURL,
		PageSize:          query.DefaultPageSize,
		RequestTimeout:    DefaultRequestTimeout,
		DeleteConcurrency: DefaultDeleteConcurrency,
		LogLevel:          DefaultLogLevel,
		LogFormat:         DefaultLogFormat,
	}, nil
}

// Load creates a Config, then applies config.yaml (if present) and the
// environment, in that order, and validates the result.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}
	if err := cfg.loadFile(); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigPath returns the path to config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

func (c *Config) loadFile() error {
	data, err := os.ReadFile(c.ConfigPath())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", ConfigFile, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalid, ConfigFile, err)
	}

	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.PageSize != 0 {
		c.PageSize = fc.PageSize
	}
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("%w: request_timeout: %v", ErrInvalid, err)
		}
		c.RequestTimeout = d
	}
	if fc.DeleteConcurrency != 0 {
		c.DeleteConcurrency = fc.DeleteConcurrency
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv(EnvBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := getenv(EnvPageSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %q is not a number", ErrInvalid, EnvPageSize, v)
		}
		c.PageSize = n
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base_url must be an http(s) URL: %q", ErrInvalid, c.BaseURL)
	}
	if !query.ValidPageSize(c.PageSize) {
		return fmt.Errorf("%w: page_size must be one of %v, got %d", ErrInvalid, query.PageSizes, c.PageSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalid)
	}
	if c.DeleteConcurrency < 1 {
		return fmt.Errorf("%w: delete_concurrency must be at least 1", ErrInvalid)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	_, err := os.Stat(c.OAuthClientPath())
	return err == nil
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

// RemoveOAuthClient deletes the client credentials file.
func (c *Config) RemoveOAuthClient() error {
	return os.Remove(c.OAuthClientPath())
}

// LoadToken reads the stored token.
func (c *Config) LoadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(c.TokenPath())
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("parse %s: %w", TokenFile, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%s has no access token", TokenFile)
	}
	return &token, nil
}

// SaveToken writes the token with mode 0600, creating the directory.
func (c *Config) SaveToken(token *oauth2.Token) error {
	if err := c.EnsureDir(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.TokenPath(), data, 0600)
}

// OAuthClient holds the client credentials grant settings.
type OAuthClient struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	TokenURL     string   `json:"token_url"`
	Scopes       []string `json:"scopes"`
}

// LoadOAuthClient reads and checks oauth_client.json.
func (c *Config) LoadOAuthClient() (*OAuthClient, error) {
	data, err := os.ReadFile(c.OAuthClientPath())
	if err != nil {
		return nil, err
	}
	var client OAuthClient
	if err := json.Unmarshal(data, &client); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalid, OAuthClientFile, err)
	}
	if client.ClientID == "" || client.TokenURL == "" {
		return nil, fmt.Errorf("%w: %s needs client_id and token_url", ErrInvalid, OAuthClientFile)
	}
	return &client, nil
}

// Credentials returns the client credentials grant configuration.
func (o *OAuthClient) Credentials() *clientcredentials.Config {
	return &clientcredentials.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		TokenURL:     o.TokenURL,
		Scopes:       o.Scopes,
	}
}
