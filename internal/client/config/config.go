// Package config holds the CLI client settings: defaults, then an optional
// JSON file, then explicitly set command-line flags.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
)

// Config holds runtime settings for the fileshare CLI.
//
// Fields:
//   - ServerURL: base URL of the API server.
//   - SessionFile: where login tokens are kept between runs.
//   - Timeout: per-request HTTP timeout; 0 disables it.
type Config struct {
	ServerURL   string
	SessionFile string
	Timeout     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.SessionFile = defaultSessionFile()
	c.Timeout = 5 * time.Minute
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "fileshare", "session.json")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if --config is set) and the flags the user set. Later sources take
// precedence over earlier ones. fs must have been prepared with RegisterFlags.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path, _ := fs.GetString("config"); path != "" {
		if err := parseJson(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := applyFlags(cfg, fs); err != nil {
		return nil, err
	}
	return cfg, nil
}
