package model

// 上游网关资源记录（CRUD一比一透传，本服务不做变换）
// 字段与上游REST契约的JSON形状保持一致

// UpstreamAPI 注册在网关上的上游API
type UpstreamAPI struct {
	ID       int64  `json:"id,omitempty"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Method   string `json:"method,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// Tier 限流等级（每分钟/每小时/每天配额）
type Tier struct {
	ID                int64  `json:"id,omitempty"`
	Name              string `json:"name"`
	RequestsPerMinute int    `json:"requests_per_minute"`
	RequestsPerHour   int    `json:"requests_per_hour"`
	RequestsPerDay    int    `json:"requests_per_day"`
	Description       string `json:"description,omitempty"`
}

// APIKey 已签发的API Key
type APIKey struct {
	ID       int64  `json:"id,omitempty"`
	APIID    int64  `json:"api_id"`
	TierID   int64  `json:"tier_id"`
	UserID   int64  `json:"user_id,omitempty"`
	KeyValue string `json:"key_value,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// GenerateKeyRequest 签发API Key的请求体
type GenerateKeyRequest struct {
	APIID  int64 `json:"api_id"`
	TierID int64 `json:"tier_id"`
}
