package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	// Test default version
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}

	// Test that version is at least "dev" or "unknown"
	version := GetVersion()
	if version != "dev" && version != "unknown" {
		// This is fine, version could be set at build time
		t.Logf("Version: %s", version)
	}
}

func TestConfigFields(t *testing.T) {
	// Create a config instance to test field access
	cfg := &Cfg{
		Port:                "8080",
		SourcesFile:         "./sources.yaml",
		WebhookSecret:       "test-secret",
		PushRateLimit:       10,
		PushRateBurst:       20,
		ChannelCapacity:     1000,
		DedupCapacity:       10000,
		PollBaselineSeconds: 60,
		PollMinSeconds:      30,
		PollMaxSeconds:      900,
		UserAgent:           "Test Agent",
		Timezone:            "UTC",
		Debug:               true,
		Version:             "test-version",
	}

	// Test direct field access
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.SourcesFile != "./sources.yaml" {
		t.Errorf("Expected sources file './sources.yaml', got '%s'", cfg.SourcesFile)
	}
	if cfg.WebhookSecret != "test-secret" {
		t.Errorf("Expected webhook secret 'test-secret', got '%s'", cfg.WebhookSecret)
	}
	if cfg.PushRateLimit != 10 {
		t.Errorf("Expected push rate limit 10, got %f", cfg.PushRateLimit)
	}
	if cfg.PushRateBurst != 20 {
		t.Errorf("Expected push rate burst 20, got %d", cfg.PushRateBurst)
	}
	if cfg.ChannelCapacity != 1000 {
		t.Errorf("Expected channel capacity 1000, got %d", cfg.ChannelCapacity)
	}
	if cfg.DedupCapacity != 10000 {
		t.Errorf("Expected dedup capacity 10000, got %d", cfg.DedupCapacity)
	}
	if cfg.PollBaselineSeconds != 60 {
		t.Errorf("Expected poll baseline 60, got %d", cfg.PollBaselineSeconds)
	}
	if cfg.PollMinSeconds != 30 {
		t.Errorf("Expected poll min 30, got %d", cfg.PollMinSeconds)
	}
	if cfg.PollMaxSeconds != 900 {
		t.Errorf("Expected poll max 900, got %d", cfg.PollMaxSeconds)
	}
	if cfg.UserAgent != "Test Agent" {
		t.Errorf("Expected user agent 'Test Agent', got '%s'", cfg.UserAgent)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("Expected timezone 'UTC', got '%s'", cfg.Timezone)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
	if cfg.Version != "test-version" {
		t.Errorf("Expected version 'test-version', got '%s'", cfg.Version)
	}
}
