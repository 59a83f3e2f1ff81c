package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides applied after file loading.
const (
	// EnvToken overrides endpoint.token so tokens stay off disk.
	EnvToken = "SATURN_TOKEN"

	// EnvEndpoint overrides endpoint.url.
	EnvEndpoint = "SATURN_ENDPOINT"

	// EnvTimeout overrides endpoint.timeout, as a Go duration string.
	EnvTimeout = "SATURN_TIMEOUT"
)

// Load reads the configuration at path layered over Default. A missing
// file is not an error when path is the empty string: the defaults are
// returned. Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv(EnvToken); val != "" {
		cfg.Endpoint.Token = val
	}
	if val := os.Getenv(EnvEndpoint); val != "" {
		cfg.Endpoint.URL = val
	}
	if val := os.Getenv(EnvTimeout); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Endpoint.Timeout = d
		}
	}
}
