package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("RIOT_API_KEY", "\"RGAPI-quoted\"")
	t.Setenv("RIOT_USERNAME", "Player")
	t.Setenv("RIOT_TAGLINE", "EUW1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIKey != "RGAPI-quoted" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Platform != "euw1" {
		t.Errorf("Platform should default to lowercase tagline, got %q", cfg.Platform)
	}
	if cfg.DatabaseURL != "summoner_insights.db" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.MatchCount != 10 || cfg.RequestDelay != 100*time.Millisecond || cfg.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.EventMode != "replace" {
		t.Errorf("EventMode = %q", cfg.EventMode)
	}
	if err := cfg.ValidateCollector(); err != nil {
		t.Errorf("ValidateCollector: %v", err)
	}
}

func TestLoad_ExplicitPlatform(t *testing.T) {
	t.Setenv("RIOT_TAGLINE", "1234")
	t.Setenv("RIOT_PLATFORM", "KR")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Platform != "kr" {
		t.Errorf("Platform = %q", cfg.Platform)
	}
}

func TestValidateCollector(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{APIKey: "k", GameName: "g", TagLine: "t", MatchCount: 5, EventMode: "append"}, false},
		{"missing key", Config{GameName: "g", TagLine: "t", MatchCount: 5, EventMode: "replace"}, true},
		{"missing riot id", Config{APIKey: "k", MatchCount: 5, EventMode: "replace"}, true},
		{"zero count", Config{APIKey: "k", GameName: "g", TagLine: "t", EventMode: "replace"}, true},
		{"bad mode", Config{APIKey: "k", GameName: "g", TagLine: "t", MatchCount: 5, EventMode: "merge"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.ValidateCollector(); (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("SUMMONER_TEST_VALUE=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	t.Setenv("SUMMONER_TEST_VALUE", "")
	os.Unsetenv("SUMMONER_TEST_VALUE")

	if got := LoadDotEnv(); got != ".env" {
		t.Fatalf("LoadDotEnv = %q", got)
	}
	if v := os.Getenv("SUMMONER_TEST_VALUE"); v != "from-file" {
		t.Errorf("SUMMONER_TEST_VALUE = %q", v)
	}
}
