package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags declares the client flags.
//
//	-a string   server base URL
//	-c string   JSON config file
func RegisterFlags(fs *pflag.FlagSet) {
	d := &Config{}
	d.LoadDefaults()

	fs.StringP("config", "c", "", "path to JSON config file")
	fs.StringP("server", "a", d.ServerURL, "server base URL")
	fs.String("session-file", d.SessionFile, "file that stores login tokens")
	fs.Duration("timeout", d.Timeout, "HTTP request timeout")
}

func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("server") {
		v, err := fs.GetString("server")
		if err != nil {
			return err
		}
		cfg.ServerURL = v
	}
	if fs.Changed("session-file") {
		v, err := fs.GetString("session-file")
		if err != nil {
			return err
		}
		cfg.SessionFile = v
	}
	if fs.Changed("timeout") {
		v, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = v
	}
	return nil
}
