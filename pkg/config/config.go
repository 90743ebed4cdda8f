package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultAuthURL           = "https://www.google.com/accounts/ClientLogin"
	DefaultFeedBaseURL       = "https://spreadsheets.google.com"
	DefaultSource            = "gspreadsheet-1.0"
	DefaultMaxAuthAttempts   = 1
	DefaultTimeoutSeconds    = 60
	DefaultRequestsPerSecond = 0
)

// Environment variables holding credentials. Secrets are never written to
// the config file.
const (
	EnvEmail    = "GSPREADSHEET_EMAIL"
	EnvPassword = "GSPREADSHEET_PASSWORD"
	EnvToken    = "GSPREADSHEET_TOKEN"
)

type ServiceConfig struct {
	// AuthURL is the ClientLogin endpoint.
	AuthURL string
	// FeedBaseURL is the scheme and host serving /feeds/...
	FeedBaseURL string
	Source      string
}

type ClientConfig struct {
	// MaxAuthAttempts bounds re-login attempts per request. Zero or less
	// retries without limit.
	MaxAuthAttempts   int
	RequestsPerSecond float64
	TimeoutSeconds    int
}

type Store struct {
	Service ServiceConfig
	Client  ClientConfig
	// Email is the default account; the password always comes from the
	// environment.
	Email string
}

type Config struct {
	Filename string
	Store    Store
}

// Save writes the current config out to a toml file.
func (c *Config) Save() error {
	b, err := toml.Marshal(c.Store)
	if err != nil {
		return err
	}
	return os.WriteFile(c.Filename, b, 0600)
}

// Load reads the config from its toml file.
func (c *Config) Load() error {
	b, err := os.ReadFile(c.Filename)
	if err != nil {
		return err
	}
	return toml.Unmarshal(b, &c.Store)
}

func (c *Config) setDefaults() {
	if c.Store.Service.AuthURL == "" {
		c.Store.Service.AuthURL = DefaultAuthURL
	}
	if c.Store.Service.FeedBaseURL == "" {
		c.Store.Service.FeedBaseURL = DefaultFeedBaseURL
	}
	if c.Store.Service.Source == "" {
		c.Store.Service.Source = DefaultSource
	}
	if c.Store.Client.TimeoutSeconds <= 0 {
		c.Store.Client.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// New returns a config with every default filled in.
func New(filename string) *Config {
	c := &Config{
		Filename: filename,
		Store: Store{
			Client: ClientConfig{MaxAuthAttempts: DefaultMaxAuthAttempts},
		},
	}
	c.setDefaults()
	return c
}

// Open loads filename, writing a default config there if it does not exist.
func Open(filename string) (*Config, error) {
	c := New(filename)
	if err := c.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		if err := c.Save(); err != nil {
			return nil, err
		}
	}
	c.setDefaults()
	return c, nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Store.Client.TimeoutSeconds) * time.Second
}

// Email returns the account from the environment, falling back to the file.
func (c *Config) Email() string {
	if v := os.Getenv(EnvEmail); v != "" {
		return v
	}
	return c.Store.Email
}

func (c *Config) Password() string {
	return os.Getenv(EnvPassword)
}

func (c *Config) Token() string {
	return os.Getenv(EnvToken)
}
