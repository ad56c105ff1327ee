package model

// AnalyticsRecord 上游聚合窗口的原始统计记录
// window_start 为窗口起始时间戳字符串（上游通常输出无时区标记的UTC时间）
type AnalyticsRecord struct {
	WindowStart       string  `json:"window_start"`
	RequestCount      int     `json:"request_count"`
	ErrorCount        int     `json:"error_count"`
	SuccessCount      int     `json:"success_count"`
	AvgResponseTimeMs float64 `json:"avg_response_time_ms"`
}

// ChartPoint 图表展示用数据点（由 analytics.FormatForCharts 派生）
// 每次格式化重新生成，生成后不再修改
type ChartPoint struct {
	Time        string  `json:"time"`      // IST时区的12小时制 hh:mm 标签
	Timestamp   int64   `json:"timestamp"` // epoch毫秒，升序排列
	Requests    int     `json:"requests"`
	Errors      int     `json:"errors"`
	Latency     float64 `json:"latency"`
	SuccessRate float64 `json:"success_rate"` // 0-100，保留1位小数，request_count=0时为0
}

// APIUsageSummary 单个API的用量汇总（管理员用量视图）
type APIUsageSummary struct {
	APIID        int64  `json:"api_id"`
	APIName      string `json:"api_name"`
	RequestCount int    `json:"request_count"`
	ErrorCount   int    `json:"error_count"`
}

// UserActivity 单个用户的活跃统计（管理员用量视图）
type UserActivity struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	RequestCount int    `json:"request_count"`
	LastActive   string `json:"last_active,omitempty"`
}

// UsageSummary 管理员用量汇总响应
type UsageSummary struct {
	APISummary   []APIUsageSummary `json:"api_summary"`
	UserActivity []UserActivity    `json:"user_activity"`
}
