package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/rabbitmq/bintray-go"
)

// Config holds the settings of the command line tool. Flags override
// environment variables, which override the config file.
type Config struct {
	Username        string `toml:"username"`
	APIKey          string `toml:"api_key"`
	APIBaseURL      string `toml:"api_base_url"`
	DownloadBaseURL string `toml:"download_base_url"`
}

// DefaultConfigPath returns the conventional location of the config
// file, or an empty string when no user config directory exists.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bintray", "config.toml")
}

// LoadConfig reads a TOML config file and applies it on top of the
// defaults. A missing file at the default path is not an error, a
// missing file named explicitly is.
func LoadConfig(path string, explicit bool) (Config, error) {
	cfg := Config{
		APIBaseURL:      bintray.DefaultAPIBaseURL,
		DownloadBaseURL: bintray.DefaultDownloadBaseURL,
	}

	if path == "" {
		return cfg, nil
	}

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if meta.IsDefined("username") {
		cfg.Username = strings.TrimSpace(raw.Username)
	}
	if meta.IsDefined("api_key") {
		cfg.APIKey = strings.TrimSpace(raw.APIKey)
	}
	if meta.IsDefined("api_base_url") {
		cfg.APIBaseURL = strings.TrimSpace(raw.APIBaseURL)
	}
	if meta.IsDefined("download_base_url") {
		cfg.DownloadBaseURL = strings.TrimSpace(raw.DownloadBaseURL)
	}

	return cfg, nil
}

// applyEnv overlays the BINTRAY_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("BINTRAY_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv("BINTRAY_API_KEY"); v != "" {
		c.APIKey = v
	}
}

// Client builds an API client from the resolved configuration.
func (c *Config) Client() (*bintray.Client, error) {
	opts := []bintray.Option{
		bintray.WithBaseURL(c.APIBaseURL),
		bintray.WithDownloadBaseURL(c.DownloadBaseURL),
	}
	if c.Username != "" {
		opts = append(opts, bintray.WithCredentials(c.Username, c.APIKey))
	}
	return bintray.NewClient(opts...)
}
