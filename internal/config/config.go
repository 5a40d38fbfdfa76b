// Package config loads run configuration from environment variables
// prefixed ADBSSI_. The CLI applies a flag only when the matching
// environment variable is unset, so a set variable wins over its flag.
//
// Grounded on the teacher's pkg/config.Load: a viper instance fed
// manually from os.Environ() (rather than viper.AutomaticEnv, which
// the teacher's comment notes doesn't play well with Unmarshal absent
// a config file) then unmarshaled into a plain struct.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the knobs that shape one simulation run.
type Config struct {
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	InitStatePath string `mapstructure:"init_state"`
	Quiet         bool   `mapstructure:"quiet"`
}

// Defaults returns the configuration used when no flag or environment
// variable overrides it.
func Defaults() Config {
	return Config{LogLevel: "INFO", LogFormat: "text"}
}

// Load starts from Defaults and overlays any ADBSSI_-prefixed
// environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	v := viper.New()
	const prefix = "ADBSSI_"
	for _, envStr := range os.Environ() {
		pair := strings.SplitN(envStr, "=", 2)
		if len(pair) != 2 || !strings.HasPrefix(pair[0], prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(pair[0], prefix))
		v.Set(key, pair[1])
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal environment: %w", err)
	}
	return cfg, nil
}
