package gateway

import (
	"context"

	"apimon/internal/model"
)

// MyAnalytics 当前用户维度的窗口聚合记录（原始UTC窗口，未做展示格式化）
func (c *Client) MyAnalytics(ctx context.Context, bearer string) ([]model.AnalyticsRecord, error) {
	return getEnvelope[[]model.AnalyticsRecord](ctx, c, bearer, "/analytics/me")
}

// AdminAnalytics 全局维度的窗口聚合记录（上游要求admin角色）
func (c *Client) AdminAnalytics(ctx context.Context, bearer string) ([]model.AnalyticsRecord, error) {
	return getEnvelope[[]model.AnalyticsRecord](ctx, c, bearer, "/analytics/admin")
}

// UsageSummary 按API和按用户的用量汇总表
func (c *Client) UsageSummary(ctx context.Context, bearer string) (*model.UsageSummary, error) {
	return getEnvelope[*model.UsageSummary](ctx, c, bearer, "/analytics/usage")
}

// TriggerAggregation 让上游立即执行一轮窗口聚合（admin手动刷新用）
func (c *Client) TriggerAggregation(ctx context.Context, bearer string) error {
	_, err := doEnvelope[any](ctx, c, bearer, "POST", "/admin/analytics/aggregate", nil)
	return err
}
