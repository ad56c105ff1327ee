// Package redis 分析图表快照的可选缓存。
//
// REDIS_URL 未设置时缓存整体禁用，所有方法退化为无操作，
// 调用方不需要感知差别（未命中和禁用走同一条回源路径）。
// 缓存失败只记日志不报错，Redis挂掉不影响控制台可用性。
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"apimon/internal/model"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// Cache 分析快照缓存
type Cache struct {
	enabled bool
	client  *redis.Client
	ttl     time.Duration
}

// New 创建缓存实例，url为空时返回禁用实例
func New(url string, ttl time.Duration) (*Cache, error) {
	if url == "" {
		return &Cache{enabled: false}, nil
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("解析REDIS_URL失败: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("Redis连接测试失败: %w", err)
	}

	log.Print("[INFO] Redis分析缓存已启用")
	return &Cache{enabled: true, client: client, ttl: ttl}, nil
}

// Enabled 缓存是否启用
func (c *Cache) Enabled() bool {
	return c.enabled
}

// chartKey 按作用域（me:用户名 / admin）和时间范围区分缓存键
func chartKey(scope, rangeSelector string) string {
	return fmt.Sprintf("apimon:charts:%s:%s", scope, rangeSelector)
}

// GetCharts 读取图表快照，未命中或禁用时ok=false
func (c *Cache) GetCharts(ctx context.Context, scope, rangeSelector string) ([]model.ChartPoint, bool) {
	if !c.enabled {
		return nil, false
	}

	raw, err := c.client.Get(ctx, chartKey(scope, rangeSelector)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[WARN] Redis读取失败: %v", err)
		}
		return nil, false
	}

	var points []model.ChartPoint
	if err := sonic.Unmarshal(raw, &points); err != nil {
		log.Printf("[WARN] 缓存快照反序列化失败: %v", err)
		return nil, false
	}
	return points, true
}

// SetCharts 写入图表快照（带TTL，失败只记日志）
func (c *Cache) SetCharts(ctx context.Context, scope, rangeSelector string, points []model.ChartPoint) {
	if !c.enabled {
		return
	}

	raw, err := sonic.Marshal(points)
	if err != nil {
		log.Printf("[WARN] 缓存快照序列化失败: %v", err)
		return
	}
	if err := c.client.Set(ctx, chartKey(scope, rangeSelector), raw, c.ttl).Err(); err != nil {
		log.Printf("[WARN] Redis写入失败: %v", err)
	}
}

// InvalidateCharts 清掉某作用域下所有范围的快照（手动触发聚合后调用）
func (c *Cache) InvalidateCharts(ctx context.Context, scope string) {
	if !c.enabled {
		return
	}

	pattern := chartKey(scope, "*")
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("[WARN] Redis删除失败: %v", err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("[WARN] Redis扫描失败: %v", err)
	}
}

// Close 关闭连接（禁用实例为无操作）
func (c *Cache) Close() error {
	if !c.enabled {
		return nil
	}
	return c.client.Close()
}
