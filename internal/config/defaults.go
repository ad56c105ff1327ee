package config

import "time"

// 上游网关HTTP客户端配置常量
const (
	// DefaultUpstreamURL 上游网关地址（开发环境默认值）
	DefaultUpstreamURL = "http://localhost:8000"

	// UpstreamRequestTimeout 普通REST调用超时
	// 压测流式请求不受此限制（单独创建不带超时的请求）
	UpstreamRequestTimeout = 15 * time.Second

	// UpstreamDialTimeout DNS解析+TCP连接建立超时
	UpstreamDialTimeout = 10 * time.Second

	// UpstreamMaxIdleConnsPerHost 单host空闲连接数
	// 控制台只对一个上游host发请求，连接可充分复用
	UpstreamMaxIdleConnsPerHost = 8
)

// 控制台会话配置常量
const (
	// TokenRandomBytes Token随机字节数（生成64字符十六进制）
	TokenRandomBytes = 32

	// SessionExpiry 控制台会话有效期
	SessionExpiry = 24 * time.Hour

	// SessionCleanupInterval 过期会话清理间隔
	SessionCleanupInterval = 1 * time.Hour
)

// 压测会话配置常量
const (
	// StressLogCapacity 单次压测日志缓冲上限（条数）
	// 超出后整体快照仍然可取，但早于上限的日志不再增长内存
	StressLogCapacity = 5000

	// StressSeriesCapacity 单次压测时序点上限
	StressSeriesCapacity = 2000

	// StressFinishedRetention 已结束会话在注册表中的保留数量
	// 超出后最早结束的会话被移出内存（归档记录仍在数据库）
	StressFinishedRetention = 16

	// StressStreamBufSize 读取上游NDJSON流的块大小
	StressStreamBufSize = 4 * 1024

	// MaxTelemetryLine 单条遥测行最大长度（防止异常上游撑爆内存）
	MaxTelemetryLine = 1 << 20 // 1MB
)

// 分析数据配置常量
const (
	// DefaultAnalyticsRange 默认时间范围选择器
	DefaultAnalyticsRange = "24h"

	// AnalyticsCacheTTL Redis快照缓存有效期
	// 图表数据允许短暂滞后，换取重复刷新时少打一次上游
	AnalyticsCacheTTL = 30 * time.Second
)

// 压测归档配置常量
const (
	// StressRunHistoryLimit 历史归档查询默认条数
	StressRunHistoryLimit = 50
)
