package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fileshare/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Timeout may be
// written as "30s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL   string          `json:"server_url"`
	SessionFile string          `json:"session_file"`
	Timeout     *timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the non-empty values of the JSON file.
func parseJson(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.SessionFile != "" {
		cfg.SessionFile = jc.SessionFile
	}
	if jc.Timeout != nil {
		cfg.Timeout = jc.Timeout.Duration
	}
	return nil
}
