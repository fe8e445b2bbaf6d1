package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
url: https://api.example.com/items
method: POST
qps: 50
timeout: 2s
maxRequests: 500
maxConcurrency: 32
headers:
  Authorization: Bearer token
payload: '{"q":"all"}'
percentiles: [50, 90, 99]
thresholds: [250ms, 500ms]
accept2xx: true
onInterrupt: cancel
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.URL != "https://api.example.com/items" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.Method != "POST" {
		t.Errorf("Method = %q, want POST", cfg.Method)
	}
	if cfg.QPS != 50 {
		t.Errorf("QPS = %v, want 50", cfg.QPS)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Timeout)
	}
	if cfg.MaxRequests != 500 {
		t.Errorf("MaxRequests = %d, want 500", cfg.MaxRequests)
	}
	if cfg.MaxConcurrency != 32 {
		t.Errorf("MaxConcurrency = %d, want 32", cfg.MaxConcurrency)
	}
	if cfg.Headers["Authorization"] != "Bearer token" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if string(cfg.Payload) != `{"q":"all"}` {
		t.Errorf("Payload = %q", cfg.Payload)
	}
	if len(cfg.Percentiles) != 3 || cfg.Percentiles[2] != 99 {
		t.Errorf("Percentiles = %v", cfg.Percentiles)
	}
	if len(cfg.Thresholds) != 2 || cfg.Thresholds[0] != 250*time.Millisecond {
		t.Errorf("Thresholds = %v", cfg.Thresholds)
	}
	if !cfg.AcceptAny2xx {
		t.Error("AcceptAny2xx = false, want true")
	}
	if cfg.OnInterrupt != InterruptCancel {
		t.Errorf("OnInterrupt = %q, want cancel", cfg.OnInterrupt)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeConfigFile(t, "url: https://example.com\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Method != "GET" || cfg.QPS != 1 || cfg.MaxRequests != 10 {
		t.Errorf("defaults not applied: method=%q qps=%v maxRequests=%d",
			cfg.Method, cfg.QPS, cfg.MaxRequests)
	}
}

func TestLoad_ExplicitZeroRejected(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero qps", "url: https://example.com\nqps: 0\n"},
		{"zero budget", "url: https://example.com\nmaxRequests: 0\n"},
		{"zero timeout", "url: https://example.com\ntimeout: 0s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.yaml)
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want validation error for explicit zero")
			}
		})
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	path := writeConfigFile(t, "url: https://example.com\nqps: -3\n")

	if _, err := Load(path); err == nil {
		t.Error("Load() error = nil, want validation error for negative qps")
	}
}

func TestLoad_BadDuration(t *testing.T) {
	path := writeConfigFile(t, "url: https://example.com\ntimeout: banana\n")

	if _, err := Load(path); err == nil {
		t.Error("Load() error = nil, want duration parse error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() error = nil, want file error")
	}
}
