// config.go - jitmem 配置
//
// 配置文件为可选项：不提供时使用 DefaultConfig 的默认值。
// 格式为 TOML，与 jitmem.toml 对应。

package jitmem

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	log "github.com/sirupsen/logrus"
)

// 常量定义
const (
	ConfigFileName = "jitmem.toml" // 配置文件名
)

// Config 内存管理器配置
type Config struct {
	// MemfdName 后备存储的调试名称（出现在 /proc/<pid>/fd 中）
	MemfdName string `toml:"memfd_name"`

	// MaxRegions 同时打开的区域数上限，0 表示不限制
	MaxRegions int `toml:"max_regions"`

	// LogLevel 日志级别（trace/debug/info/warning/error），空字符串表示不修改
	LogLevel string `toml:"log_level"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		MemfdName:  "jitmem",
		MaxRegions: 0,
		LogLevel:   "",
	}
}

// LoadConfig 从文件加载配置
// 文件中未出现的字段保持默认值。
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// applyLogLevel 应用配置中的日志级别
func (c *Config) applyLogLevel() {
	if c.LogLevel == "" {
		return
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithFields(log.Fields{"level": c.LogLevel}).Warn("invalid log level in config, keeping current level")
		return
	}
	log.SetLevel(level)
}
