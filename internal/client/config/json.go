package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/dmitrijs2005/omgclient/internal/flagx"
	"github.com/dmitrijs2005/omgclient/internal/timex"
)

// JSONConfig is the on-disk shape of Config, read from JSON or, for files
// ending in .toml, from TOML. Durations use timex.Duration so they can be
// written as "60s" or, in JSON only, as integer nanoseconds.
type JSONConfig struct {
	APIBaseURL        string          `json:"api_base_url" toml:"api_base_url"`
	AuthURL           string          `json:"auth_url" toml:"auth_url"`
	ProfileCacheURL   string          `json:"profile_cache_url" toml:"profile_cache_url"`
	StoreDriver       string          `json:"store_driver" toml:"store_driver"`
	StoreDSN          string          `json:"store_dsn" toml:"store_dsn"`
	S3                *JSONS3Config   `json:"s3" toml:"s3"`
	KeyFile           string          `json:"key_file" toml:"key_file"`
	ReloadInterval    *timex.Duration `json:"reload_interval" toml:"reload_interval"`
	RequestTimeout    *timex.Duration `json:"request_timeout" toml:"request_timeout"`
	RequestsPerSecond float64         `json:"requests_per_second" toml:"requests_per_second"`
	Burst             int             `json:"burst" toml:"burst"`
	ClientID          string          `json:"client_id" toml:"client_id"`
	ClientSecret      string          `json:"client_secret" toml:"client_secret"`
	RedirectURI       string          `json:"redirect_uri" toml:"redirect_uri"`
	LogLevel          string          `json:"log_level" toml:"log_level"`
	LogFormat         string          `json:"log_format" toml:"log_format"`
}

type JSONS3Config struct {
	Bucket    string `json:"bucket" toml:"bucket"`
	Prefix    string `json:"prefix" toml:"prefix"`
	Region    string `json:"region" toml:"region"`
	Endpoint  string `json:"endpoint" toml:"endpoint"`
	AccessKey string `json:"access_key" toml:"access_key"`
	SecretKey string `json:"secret_key" toml:"secret_key"`
}

// parseFile overlays cfg with the fields present in the file named by -c or
// -config. Absent fields keep their current values; reload_interval may be
// set to 0 explicitly.
func parseFile(cfg *Config, args []string) error {
	path, err := expandHome(flagx.ConfigPath(args))
	if err != nil || path == "" {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JSONConfig
	unmarshal := json.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		unmarshal = toml.Unmarshal
	}
	if err := unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.AuthURL, jc.AuthURL)
	setString(&cfg.ProfileCacheURL, jc.ProfileCacheURL)
	setString(&cfg.StoreDriver, jc.StoreDriver)
	setString(&cfg.StoreDSN, jc.StoreDSN)
	if jc.KeyFile != "" {
		if cfg.KeyFile, err = expandHome(jc.KeyFile); err != nil {
			return err
		}
	}
	setString(&cfg.ClientID, jc.ClientID)
	setString(&cfg.ClientSecret, jc.ClientSecret)
	setString(&cfg.RedirectURI, jc.RedirectURI)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)

	if jc.ReloadInterval != nil {
		cfg.ReloadInterval = jc.ReloadInterval.Duration
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.RequestsPerSecond != 0 {
		cfg.RequestsPerSecond = jc.RequestsPerSecond
	}
	if jc.Burst != 0 {
		cfg.Burst = jc.Burst
	}
	if s := jc.S3; s != nil {
		setString(&cfg.S3.Bucket, s.Bucket)
		setString(&cfg.S3.Prefix, s.Prefix)
		setString(&cfg.S3.Region, s.Region)
		setString(&cfg.S3.Endpoint, s.Endpoint)
		setString(&cfg.S3.AccessKey, s.AccessKey)
		setString(&cfg.S3.SecretKey, s.SecretKey)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
