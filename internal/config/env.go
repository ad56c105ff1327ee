package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvConfig 统一环境变量配置结构
// 遵循 SOLID 原则：单一职责 + 配置验证
type EnvConfig struct {
	// 服务配置
	Port    string
	GinMode string

	// 上游网关
	UpstreamURL string

	// 数据库配置
	SQLitePath string
	MySQLDSN   string
	RedisURL   string

	// 压测配置
	StressLogCapacity int
	FinishedRetention int
}

// LoadFromEnv 从环境变量加载配置并验证
func LoadFromEnv() (*EnvConfig, error) {
	cfg := &EnvConfig{}

	// 服务配置
	cfg.Port = getEnvOrDefault("PORT", ":8080")
	if !strings.HasPrefix(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	cfg.GinMode = os.Getenv("GIN_MODE")

	// 上游网关地址（必须可用，一切数据都来自上游）
	cfg.UpstreamURL = getEnvOrDefault("APIMON_UPSTREAM", DefaultUpstreamURL)

	// 数据库配置
	cfg.SQLitePath = getEnvOrDefault("APIMON_SQLITE_PATH", "data/apimon.db")
	cfg.MySQLDSN = os.Getenv("APIMON_MYSQL")
	cfg.RedisURL = os.Getenv("REDIS_URL")

	// 压测配置
	cfg.StressLogCapacity = getIntEnv("APIMON_STRESS_LOG_CAPACITY", StressLogCapacity)
	cfg.FinishedRetention = getIntEnv("APIMON_STRESS_RETENTION", StressFinishedRetention)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return cfg, nil
}

// Validate 验证配置合法性
func (c *EnvConfig) Validate() error {
	// 端口范围验证
	if c.Port != "" && strings.HasPrefix(c.Port, ":") {
		portNum, err := strconv.Atoi(c.Port[1:])
		if err != nil || portNum < 1 || portNum > 65535 {
			return fmt.Errorf("无效端口号: %s", c.Port)
		}
	}

	if !strings.HasPrefix(c.UpstreamURL, "http://") && !strings.HasPrefix(c.UpstreamURL, "https://") {
		return fmt.Errorf("APIMON_UPSTREAM 必须是 http(s) 地址: %s", c.UpstreamURL)
	}

	if c.StressLogCapacity < 100 {
		return fmt.Errorf("APIMON_STRESS_LOG_CAPACITY 过小（最少100）: %d", c.StressLogCapacity)
	}

	return nil
}

// 辅助函数：获取环境变量或默认值
func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// 辅助函数：获取整数环境变量
func getIntEnv(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil && intVal > 0 {
			return intVal
		}
	}
	return defaultValue
}
