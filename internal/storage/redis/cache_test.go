package redis

import (
	"context"
	"testing"
	"time"

	"apimon/internal/model"
)

// TestDisabledCache URL为空时所有操作都是安全的无操作
func TestDisabledCache(t *testing.T) {
	cache, err := New("", 30*time.Second)
	if err != nil {
		t.Fatalf("禁用实例创建不应失败: %v", err)
	}
	if cache.Enabled() {
		t.Error("空URL应返回禁用实例")
	}

	ctx := context.Background()
	if _, ok := cache.GetCharts(ctx, "admin", "24h"); ok {
		t.Error("禁用实例读取应返回未命中")
	}
	cache.SetCharts(ctx, "admin", "24h", []model.ChartPoint{{Time: "05:00 PM"}})
	cache.InvalidateCharts(ctx, "admin")
	if err := cache.Close(); err != nil {
		t.Errorf("禁用实例Close不应报错: %v", err)
	}
}

// TestNew_BadURL 非法URL立即报错而不是延迟到首次使用
func TestNew_BadURL(t *testing.T) {
	if _, err := New("not-a-redis-url", 30*time.Second); err == nil {
		t.Error("非法URL应返回错误")
	}
}

func TestChartKey(t *testing.T) {
	if got := chartKey("me:alice", "7d"); got != "apimon:charts:me:alice:7d" {
		t.Errorf("缓存键格式错误: %s", got)
	}
}
