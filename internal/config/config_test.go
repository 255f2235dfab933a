package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %q", cfg.ListenAddr)
	}
	if cfg.Engine != EngineSpleeter {
		t.Fatalf("unexpected engine: %q", cfg.Engine)
	}
	if cfg.SpleeterParam != "spleeter:2stems-16kHz" {
		t.Fatalf("unexpected spleeter param: %q", cfg.SpleeterParam)
	}
	if cfg.RequestTimeout != 300*time.Second {
		t.Fatalf("unexpected request timeout: %v", cfg.RequestTimeout)
	}
	if cfg.SeparationTimeout != 240*time.Second {
		t.Fatalf("unexpected separation timeout: %v", cfg.SeparationTimeout)
	}
	if cfg.MaxConcurrent != 2 {
		t.Fatalf("unexpected concurrency limit: %d", cfg.MaxConcurrent)
	}
}

func TestLoadRemoteEngineRequiresBaseURL(t *testing.T) {
	t.Setenv("ENGINE", "remote")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when UPSTREAM_BASE_URL is unset")
	}

	t.Setenv("UPSTREAM_BASE_URL", "http://separator.internal/")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine != EngineRemote {
		t.Fatalf("unexpected engine: %q", cfg.Engine)
	}
	if strings.HasSuffix(cfg.UpstreamBaseURL, "/") {
		t.Fatalf("base URL should have trailing slash trimmed: %q", cfg.UpstreamBaseURL)
	}
}

func TestLoadRejectsUnknownEngine(t *testing.T) {
	t.Setenv("ENGINE", "demucs")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := Config{
		ListenAddr:        ":8080",
		Engine:            EngineSpleeter,
		SpleeterBin:       "spleeter",
		SpleeterParam:     "spleeter:2stems-16kHz",
		RequestTimeout:    time.Second,
		SeparationTimeout: time.Second,
		MaxBodyBytes:      1,
		MaxConcurrent:     1,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty listen addr", func(c *Config) { c.ListenAddr = "" }},
		{"empty spleeter bin", func(c *Config) { c.SpleeterBin = "" }},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"zero separation timeout", func(c *Config) { c.SeparationTimeout = 0 }},
		{"zero body limit", func(c *Config) { c.MaxBodyBytes = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
