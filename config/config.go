// Package config loads the YAML configuration consumed by the example
// binaries (cmd/wsgateway): target URL, TLS verification toggle, and
// timing overrides for the heartbeat interval and connect timeout.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ClientConfig mirrors the constructor/setter surface of wsclient.Client
// and httpclient.Client so an example binary can be driven entirely from
// a YAML file instead of flags.
type ClientConfig struct {
	URL                string `yaml:"url"`
	VerifyPeer         bool   `yaml:"verify_peer"`
	AutomaticReconnect bool   `yaml:"automatic_reconnect"`
	ConnectTimeoutMs   int    `yaml:"connect_timeout_ms"`
	HeartbeatIntervalS int    `yaml:"heartbeat_interval_s"`
}

// Default returns a ClientConfig with the runtime's built-in defaults
// (verify_peer on, automatic_reconnect off, 30s heartbeat).
func Default() ClientConfig {
	return ClientConfig{
		VerifyPeer:         true,
		AutomaticReconnect: false,
		ConnectTimeoutMs:   -1,
		HeartbeatIntervalS: 30,
	}
}

// Load reads and parses a ClientConfig from path, starting from Default()
// so a partial YAML file only needs to override what it cares about.
func Load(path string) (ClientConfig, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.URL == "" {
		return cfg, fmt.Errorf("config: %s: missing required field \"url\"", path)
	}

	return cfg, nil
}
