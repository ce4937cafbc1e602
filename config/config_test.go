package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	path := writeTempConfig(t, "url: wss://gateway.example.com/v1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.URL != "wss://gateway.example.com/v1" {
		t.Fatalf("unexpected url %q", cfg.URL)
	}
	if !cfg.VerifyPeer {
		t.Fatalf("expected VerifyPeer to default true")
	}
	if cfg.HeartbeatIntervalS != 30 {
		t.Fatalf("expected default heartbeat interval 30, got %d", cfg.HeartbeatIntervalS)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
url: wss://gateway.example.com/v1
verify_peer: false
automatic_reconnect: true
heartbeat_interval_s: 15
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.VerifyPeer {
		t.Fatalf("expected VerifyPeer override to false")
	}
	if !cfg.AutomaticReconnect {
		t.Fatalf("expected AutomaticReconnect override to true")
	}
	if cfg.HeartbeatIntervalS != 15 {
		t.Fatalf("expected heartbeat interval override 15, got %d", cfg.HeartbeatIntervalS)
	}
}

func TestLoadRequiresURL(t *testing.T) {
	path := writeTempConfig(t, "verify_peer: true\n")

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for missing url")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
