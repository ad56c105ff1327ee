package stress

import (
	"time"

	"apimon/internal/model"
)

// 终端标记与错误行前缀（与参考前端展示保持一致）
const (
	completedMarker = ">>> TEST COMPLETED <<<"
	errorLinePrefix = "ERROR: "
)

// Accumulator 单次压测的运行状态累加器
// 所有权规则：一个累加器只属于一次压测会话，会话开始时新建，结束后只读。
// logs和series在一次运行内只追加不修改；终止（completed事件或传输错误）
// 之后不再发生任何变更。
type Accumulator struct {
	logs    []string
	series  []model.SeriesPoint
	stats   model.StressStats
	running bool

	logCapacity    int
	seriesCapacity int
	droppedLogs    int // 超出容量后丢弃的日志条数（只计数，保证追加语义）

	nowFn func() time.Time // 时序点时间标签来源，测试可注入
}

// NewAccumulator 创建空累加器（running=true）
func NewAccumulator(logCapacity, seriesCapacity int) *Accumulator {
	return &Accumulator{
		logs:           make([]string, 0, 64),
		series:         make([]model.SeriesPoint, 0, 32),
		running:        true,
		logCapacity:    logCapacity,
		seriesCapacity: seriesCapacity,
		nowFn:          time.Now,
	}
}

// Apply 把一个解码事件折叠进累加器
// 终止后的事件一律忽略（不再发生任何变更）
func (a *Accumulator) Apply(ev Event) {
	if !a.running {
		return
	}

	switch e := ev.(type) {
	case LogEvent:
		a.appendLog(e.Text)
		if IsAggregatedLine(e.Text) {
			// 汇总行解析失败时日志已记录，只跳过统计/时序更新
			if s, ok := ParseSummaryLine(e.Text); ok {
				a.applySummary(s)
			}
		}
	case CompletedEvent:
		a.appendLog(completedMarker)
		a.running = false
	}
}

// Fail 记录传输层错误并终止会话
// 会话进入可检视的终态：日志里有错误行，running=false，不会挂起
func (a *Accumulator) Fail(err error) {
	if !a.running {
		return
	}
	a.appendLog(errorLinePrefix + err.Error())
	a.running = false
}

// Stop 外部主动停止（关闭视图/手动终止）
func (a *Accumulator) Stop() {
	a.running = false
}

// applySummary 追加时序点并整体覆盖统计快照
func (a *Accumulator) applySummary(s Summary) {
	if len(a.series) < a.seriesCapacity {
		a.series = append(a.series, model.SeriesPoint{
			Time:       a.nowFn().Format("15:04:05"),
			RPS:        s.RPS,
			Failures:   s.FailPerSec,
			AvgLatency: s.AvgLatency,
		})
	}
	a.stats = model.StressStats{
		TotalRequests: s.TotalRequests,
		CurrentRPS:    s.RPS,
		AvgLatency:    s.AvgLatency,
		MaxLatency:    s.MaxLatency,
		FailRate:      s.FailRate,
	}
}

func (a *Accumulator) appendLog(text string) {
	if len(a.logs) >= a.logCapacity {
		a.droppedLogs++
		return
	}
	a.logs = append(a.logs, text)
}

// Running 当前是否仍在运行
func (a *Accumulator) Running() bool {
	return a.running
}

// Stats 当前统计快照
func (a *Accumulator) Stats() model.StressStats {
	return a.stats
}

// Logs 日志副本（调用方可安全持有）
func (a *Accumulator) Logs() []string {
	out := make([]string, len(a.logs))
	copy(out, a.logs)
	return out
}

// Series 时序点副本
func (a *Accumulator) Series() []model.SeriesPoint {
	out := make([]model.SeriesPoint, len(a.series))
	copy(out, a.series)
	return out
}

// DroppedLogs 因容量上限被丢弃的日志条数
func (a *Accumulator) DroppedLogs() int {
	return a.droppedLogs
}
