package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("FUSION_METHOD", "")
	t.Setenv("FUSION_RRF_K", "")
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("DEDUP_THRESHOLD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FusionMethod != "rrf" {
		t.Fatalf("expected default fusion method rrf, got %q", cfg.FusionMethod)
	}
	if cfg.FusionRRFK != 60 {
		t.Fatalf("expected default rrf k 60, got %d", cfg.FusionRRFK)
	}
	if cfg.SearchTopK != 30 {
		t.Fatalf("expected default top k 30, got %d", cfg.SearchTopK)
	}
	if cfg.DedupThreshold != 0.6 {
		t.Fatalf("expected default dedup threshold 0.6, got %v", cfg.DedupThreshold)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("FUSION_METHOD", "weighted_sum")
	t.Setenv("FUSION_LEXICAL_WEIGHT", "0.3")
	t.Setenv("FUSION_VECTOR_WEIGHT", "0.7")
	t.Setenv("RERANK_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.FusionMethod != "weighted_sum" {
		t.Fatalf("expected fusion method override, got %q", cfg.FusionMethod)
	}
	if cfg.FusionLexWeight != 0.3 || cfg.FusionVecWeight != 0.7 {
		t.Fatalf("expected weight overrides, got %v/%v", cfg.FusionLexWeight, cfg.FusionVecWeight)
	}
	if !cfg.RerankEnabled {
		t.Fatalf("expected rerank enabled")
	}
}

func TestLoadYAMLFileThenEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "fusion_method: weighted_reciprocal\nsearch_top_k: 50\napi_port: \"8888\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("FUSION_METHOD", "rrf")
	t.Setenv("SEARCH_TOP_K", "")
	t.Setenv("API_PORT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SearchTopK != 50 {
		t.Fatalf("expected file value 50, got %d", cfg.SearchTopK)
	}
	if cfg.APIPort != "8888" {
		t.Fatalf("expected file port 8888, got %q", cfg.APIPort)
	}
	// Env overrides the file.
	if cfg.FusionMethod != "rrf" {
		t.Fatalf("expected env to win over file, got %q", cfg.FusionMethod)
	}
}

func TestLoadBadYAMLFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("fusion_method: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")
	if _, err := Load(); err == nil {
		t.Fatalf("expected read error")
	}
}
