package stress

import (
	"sync"
	"time"

	"apimon/internal/model"

	"github.com/google/uuid"
)

// initialLogLine 会话启动时的第一条日志（与参考前端展示一致）
const initialLogLine = "Initializing Locust Swarm..."

// Session 一次压测会话
// 生命周期显式化：NewSession创建（start）→ Apply/Fail折叠事件（update）→
// completed事件、传输错误或Stop终止（end）。累加器由会话独占，所有读写经
// 互斥锁，快照读与流式写互不阻塞对方的正确性。
type Session struct {
	ID        string
	Username  string // 发起者，归档和历史查询用
	Request   model.StressRequest
	StartedAt time.Time

	mu        sync.Mutex
	acc       *Accumulator
	endedAt   time.Time
	completed bool // 收到completed事件正常结束

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Snapshot 会话状态的一致性快照（供轮询端点返回）
type Snapshot struct {
	ID        string              `json:"id"`
	Running   bool                `json:"running"`
	Completed bool                `json:"completed"`
	StartedAt time.Time           `json:"started_at"`
	EndedAt   *time.Time          `json:"ended_at,omitempty"`
	Logs      []string            `json:"logs"`
	Series    []model.SeriesPoint `json:"series"`
	Stats     model.StressStats   `json:"stats"`
}

// NewSession 创建新会话：全新的空累加器 + uuid会话ID
func NewSession(username string, req model.StressRequest, logCapacity, seriesCapacity int) *Session {
	acc := NewAccumulator(logCapacity, seriesCapacity)
	acc.appendLog(initialLogLine)

	return &Session{
		ID:        uuid.NewString(),
		Username:  username,
		Request:   req,
		StartedAt: time.Now(),
		acc:       acc,
		stopCh:    make(chan struct{}),
	}
}

// Apply 把解码事件折叠进会话（流读取协程调用）
func (s *Session) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.acc.Apply(ev)
	if _, ok := ev.(CompletedEvent); ok {
		s.completed = true
		s.endedAt = time.Now()
	}
}

// Fail 传输错误终止：日志追加错误行，清除运行标记
func (s *Session) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.acc.Fail(err)
	if s.endedAt.IsZero() {
		s.endedAt = time.Now()
	}
}

// Stop 外部停止信号（幂等）
// 流读取方监听StopCh并停止消费；废弃的流不会继续写入无人观察的状态
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.acc.Stop()
		if s.endedAt.IsZero() {
			s.endedAt = time.Now()
		}
	})
}

// StopCh 停止信号通道
func (s *Session) StopCh() <-chan struct{} {
	return s.stopCh
}

// Running 会话是否仍在运行
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acc.Running()
}

// Snapshot 取当前状态快照（深拷贝，持有者可安全使用）
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        s.ID,
		Running:   s.acc.Running(),
		Completed: s.completed,
		StartedAt: s.StartedAt,
		Logs:      s.acc.Logs(),
		Series:    s.acc.Series(),
		Stats:     s.acc.Stats(),
	}
	if !s.endedAt.IsZero() {
		t := s.endedAt
		snap.EndedAt = &t
	}
	return snap
}

// Run 生成归档记录（会话结束后写入本地数据库）
func (s *Session) Run() model.StressRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	endedAt := s.endedAt
	if endedAt.IsZero() {
		endedAt = time.Now()
	}
	stats := s.acc.Stats()

	return model.StressRun{
		ID:             s.ID,
		Username:       s.Username,
		TargetEndpoint: s.Request.TargetEndpoint,
		NumUsers:       s.Request.NumUsers,
		SpawnRate:      s.Request.SpawnRate,
		Duration:       s.Request.Duration,
		StartedAt:      s.StartedAt,
		EndedAt:        endedAt,
		Completed:      s.completed,
		TotalRequests:  stats.TotalRequests,
		FailRate:       stats.FailRate,
		AvgLatency:     stats.AvgLatency,
		MaxLatency:     stats.MaxLatency,
	}
}
