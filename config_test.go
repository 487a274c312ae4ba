// config_test.go - 配置加载测试

package jitmem

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig 测试默认配置
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MemfdName != "jitmem" {
		t.Errorf("default memfd name = %q, want \"jitmem\"", cfg.MemfdName)
	}
	if cfg.MaxRegions != 0 {
		t.Errorf("default max regions = %d, want 0 (unlimited)", cfg.MaxRegions)
	}
}

// TestLoadConfig 测试从文件加载
func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := `
memfd_name = "myjit"
max_regions = 8
log_level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MemfdName != "myjit" {
		t.Errorf("memfd_name = %q, want \"myjit\"", cfg.MemfdName)
	}
	if cfg.MaxRegions != 8 {
		t.Errorf("max_regions = %d, want 8", cfg.MaxRegions)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want \"debug\"", cfg.LogLevel)
	}
}

// TestLoadConfigPartial 测试缺省字段保持默认值
func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("max_regions = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.MemfdName != "jitmem" {
		t.Errorf("memfd_name = %q, want default \"jitmem\"", cfg.MemfdName)
	}
	if cfg.MaxRegions != 3 {
		t.Errorf("max_regions = %d, want 3", cfg.MaxRegions)
	}
}

// TestLoadConfigMissing 测试文件不存在
func TestLoadConfigMissing(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("LoadConfig on missing file returned nil error")
	}
}

// TestLoadConfigMalformed 测试非法 TOML
func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte("max_regions = {{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("LoadConfig on malformed file returned nil error")
	}
}
