package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const fullConfig = `
baseUrl: https://gateway.example.com/openapi
language: en-GB
requestTimeout: 10s
transportTypes:
  - websocket
  - legacy-signalr-longpolling
startOptions:
  waitForPageLoad: false
auth:
  token: TOKEN
  contextId: ctx-1
  expiry: 1700000000000
`

func TestParseFull(t *testing.T) {
	cfg, err := Parse([]byte(fullConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.BaseURL != "https://gateway.example.com/openapi" {
		t.Errorf("unexpected base url %q", cfg.BaseURL)
	}
	if cfg.Language != "en-GB" {
		t.Errorf("unexpected language %q", cfg.Language)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("unexpected timeout %v", cfg.RequestTimeout)
	}
	if len(cfg.TransportTypes) != 2 || cfg.TransportTypes[0] != "websocket" {
		t.Errorf("unexpected transport types %v", cfg.TransportTypes)
	}
	if v, ok := cfg.StartOptions["waitForPageLoad"]; !ok || v != false {
		t.Errorf("unexpected start options %v", cfg.StartOptions)
	}
	if cfg.Auth.Token != "TOKEN" || cfg.Auth.ContextID != "ctx-1" || cfg.Auth.Expiry != 1700000000000 {
		t.Errorf("unexpected auth %+v", cfg.Auth)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("baseUrl: https://gateway.example.com\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Language != DefaultLanguage {
		t.Errorf("language default not applied: %q", cfg.Language)
	}
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Errorf("timeout default not applied: %v", cfg.RequestTimeout)
	}
	if len(cfg.TransportTypes) != 0 {
		t.Errorf("expected empty transport preference, got %v", cfg.TransportTypes)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"missing base url", "language: en\n"},
		{"relative base url", "baseUrl: /openapi\n"},
		{"negative timeout", "baseUrl: https://gateway.example.com\nrequestTimeout: -1s\n"},
		{"malformed yaml", "baseUrl: [unterminated\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.in)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte(fullConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://gateway.example.com/openapi" {
		t.Errorf("unexpected base url %q", cfg.BaseURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
