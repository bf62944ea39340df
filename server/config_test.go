package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig(\"\") error = %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:9000" || cfg.MaxConnectionCount != 100 {
		t.Errorf("defaults = %+v", cfg)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.Burst != 200 {
		t.Errorf("rate limit defaults = %+v", cfg.RateLimit)
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "worldcore.yaml")
	body := `
listen_address: " :7000 "
max_connection_count: 2
worlds: [lobby, "", arena]
read_timeout: 15s
remove_entity_on_leave: true
rate_limit:
  enabled: false
log:
  level: INFO
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.ListenAddress != ":7000" || cfg.MaxConnectionCount != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Worlds) != 2 || cfg.Worlds[0] != "lobby" || cfg.Worlds[1] != "arena" {
		t.Errorf("Worlds = %v", cfg.Worlds)
	}
	if cfg.ReadTimeout != 15*time.Second || !cfg.RemoveEntityOnLeave || cfg.RateLimit.Enabled {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Log.Level != "info" || cfg.Log.MaxBackups != 3 {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "zero capacity", body: "max_connection_count: 0\n", wantErr: "max_connection_count"},
		{name: "auto join without worlds", body: "worlds: []\n", wantErr: "auto_join"},
		{name: "bad rate limit", body: "rate_limit: {enabled: true, burst: 0}\n", wantErr: "rate_limit"},
		{name: "bad yaml", body: "max_connection_count: [\n", wantErr: "worldcore.yaml"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "worldcore.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadConfig() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); !os.IsNotExist(err) {
		t.Errorf("LoadConfig() error = %v, want not-exist", err)
	}
}
