package config

import (
	"time"
)

// Config holds runtime settings for the client.
type Config struct {
	APIBaseURL      string
	AuthURL         string
	ProfileCacheURL string

	// StoreDriver is one of sqlite, postgres, s3 or memory.
	StoreDriver string
	StoreDSN    string
	S3          S3Config
	// KeyFile holds the local key that seals the session token before it is
	// stored. Empty stores the token as is.
	KeyFile string

	// ReloadInterval is how long fetched data counts as fresh. Zero means
	// data is only refetched on request.
	ReloadInterval    time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int

	ClientID     string
	ClientSecret string
	RedirectURI  string

	LogLevel  string
	LogFormat string
}

// S3Config is used when StoreDriver is s3.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://api.omg.lol"
	c.AuthURL = "https://home.omg.lol/oauth/authorize"
	c.ProfileCacheURL = "https://profiles.cache.lol"
	c.StoreDriver = "sqlite"
	c.StoreDSN = "omgclient.db"
	c.KeyFile = "omgclient.key"
	c.ReloadInterval = time.Minute
	c.RequestTimeout = 15 * time.Second
	c.RequestsPerSecond = 5
	c.Burst = 10
	c.RedirectURI = "http://localhost:8931/callback"
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// LoadConfig applies defaults, then the config file named by -c/-config (if
// any), then command-line flags. Later sources take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
