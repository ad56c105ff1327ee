package model

import "time"

// StressRequest 发起压测的请求参数（透传给上游 /stress/start）
type StressRequest struct {
	TargetHost     string `json:"target_host"`
	TargetEndpoint string `json:"target_endpoint"`
	APIKey         string `json:"api_key"`
	NumUsers       int    `json:"num_users"`
	SpawnRate      int    `json:"spawn_rate"`
	Duration       int    `json:"duration"`
}

// Validate 校验压测参数（网络调用前拦截，错误直接返回给表单）
func (r *StressRequest) Validate() error {
	if r.TargetEndpoint == "" {
		return ErrStressEndpointRequired
	}
	if r.APIKey == "" {
		return ErrStressKeyRequired
	}
	if r.NumUsers <= 0 {
		r.NumUsers = 10
	}
	if r.SpawnRate <= 0 {
		r.SpawnRate = 2
	}
	if r.Duration <= 0 {
		r.Duration = 10
	}
	return nil
}

// StressStats 压测汇总统计快照
// 每解析到一条合法的Aggregated汇总行整体覆盖一次
type StressStats struct {
	TotalRequests int     `json:"total_requests"`
	CurrentRPS    float64 `json:"current_rps"`
	AvgLatency    float64 `json:"avg_latency"`
	MaxLatency    float64 `json:"max_latency"`
	FailRate      float64 `json:"fail_rate"`
}

// SeriesPoint 压测时序图表数据点
type SeriesPoint struct {
	Time       string  `json:"time"`
	RPS        float64 `json:"rps"`
	Failures   float64 `json:"failures"`
	AvgLatency float64 `json:"avg_latency"`
}

// StressRun 一次已结束压测的归档记录（本地持久化）
type StressRun struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	TargetEndpoint string    `json:"target_endpoint"`
	NumUsers       int       `json:"num_users"`
	SpawnRate      int       `json:"spawn_rate"`
	Duration       int       `json:"duration"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	Completed      bool      `json:"completed"` // true=收到completed事件，false=传输错误或手动停止
	TotalRequests  int       `json:"total_requests"`
	FailRate       float64   `json:"fail_rate"`
	AvgLatency     float64   `json:"avg_latency"`
	MaxLatency     float64   `json:"max_latency"`
}
