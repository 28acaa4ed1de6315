package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load with missing file: %v", err)
	}
	if cfg.Engine.ChunkSize != 500 {
		t.Fatalf("chunk_size default mismatch: %d", cfg.Engine.ChunkSize)
	}
	if cfg.Engine.BatchThreshold != 10 {
		t.Fatalf("batch_threshold default mismatch: %d", cfg.Engine.BatchThreshold)
	}
	if !cfg.Engine.StrictBounds {
		t.Fatalf("strict_bounds must default to true")
	}
	if cfg.Engine.MaxVolatility != 5.0 {
		t.Fatalf("max_volatility default mismatch: %g", cfg.Engine.MaxVolatility)
	}
	if cfg.Logger.Level != "info" || cfg.Logger.Format != "json" {
		t.Fatalf("logger defaults mismatch: %+v", cfg.Logger)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	content := `
service_name = "pricing-bench"

[engine]
chunk_size = 250
batch_threshold = 20
strict_bounds = false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ServiceName != "pricing-bench" {
		t.Fatalf("service_name mismatch: %s", cfg.ServiceName)
	}
	if cfg.Engine.ChunkSize != 250 || cfg.Engine.BatchThreshold != 20 {
		t.Fatalf("engine overrides mismatch: %+v", cfg.Engine)
	}
	if cfg.Engine.StrictBounds {
		t.Fatalf("strict_bounds override mismatch")
	}
	// 未覆盖的字段保持默认值
	if cfg.Engine.MaxVolatility != 5.0 {
		t.Fatalf("max_volatility default lost: %g", cfg.Engine.MaxVolatility)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	content := `
[engine]
chunk_size = -1
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for negative chunk_size")
	}
}

func TestLoad_RejectsMalformedTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	content := `[engine
chunk_size = 250
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// 文件存在但语法错误：必须报错，不能静默回退到默认值
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error for malformed TOML")
	}
}

func TestDefaultEngine(t *testing.T) {
	cfg := DefaultEngine()
	if cfg.ChunkSize != 500 || cfg.BatchThreshold != 10 || !cfg.StrictBounds {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}
