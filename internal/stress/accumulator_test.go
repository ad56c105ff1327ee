package stress

import (
	"testing"
	"time"
)

func newTestAccumulator() *Accumulator {
	a := NewAccumulator(1000, 1000)
	a.nowFn = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	return a
}

// 场景：两块数据，Aggregated记录跨块边界
// 验证日志追加、时序点追加和统计覆盖的完整链路
func TestAccumulator_ChunkedAggregatedLine(t *testing.T) {
	d := NewLineDecoder()
	a := newTestAccumulator()

	chunks := [][]byte{
		[]byte(`{"log":"hello"}` + "\n" + `{"log":"Aggrega`),
		[]byte(`ted: 100 req (2.0%) | 50.0 avg 10.0 min 80.0 max | 12.5 rps 0.25 fail"}` + "\n"),
	}
	for _, chunk := range chunks {
		for _, ev := range d.Feed(chunk) {
			a.Apply(ev)
		}
	}

	logs := a.Logs()
	if len(logs) != 2 {
		t.Fatalf("期望2条日志, 实际 %d: %v", len(logs), logs)
	}
	if logs[0] != "hello" {
		t.Errorf("logs[0] = %q, 期望 \"hello\"", logs[0])
	}
	if !IsAggregatedLine(logs[1]) {
		t.Errorf("logs[1] 应为Aggregated行: %q", logs[1])
	}

	series := a.Series()
	if len(series) != 1 {
		t.Fatalf("期望恰好1个时序点, 实际 %d", len(series))
	}
	if series[0].RPS != 12.5 {
		t.Errorf("series[0].RPS = %v, 期望 12.5", series[0].RPS)
	}
	if series[0].Failures != 0.25 {
		t.Errorf("series[0].Failures = %v, 期望 0.25", series[0].Failures)
	}
	if series[0].AvgLatency != 50.0 {
		t.Errorf("series[0].AvgLatency = %v, 期望 50.0", series[0].AvgLatency)
	}

	stats := a.Stats()
	if stats.TotalRequests != 100 {
		t.Errorf("TotalRequests = %d, 期望 100", stats.TotalRequests)
	}
	if stats.FailRate != 2.0 {
		t.Errorf("FailRate = %v, 期望 2.0", stats.FailRate)
	}
	if stats.AvgLatency != 50.0 {
		t.Errorf("AvgLatency = %v, 期望 50.0", stats.AvgLatency)
	}
	if stats.MaxLatency != 80.0 {
		t.Errorf("MaxLatency = %v, 期望 80.0", stats.MaxLatency)
	}
	if stats.CurrentRPS != 12.5 {
		t.Errorf("CurrentRPS = %v, 期望 12.5", stats.CurrentRPS)
	}
}

// 畸形汇总行（只有两段）：日志照常追加，统计与时序跳过
func TestAccumulator_MalformedSummaryStillLogged(t *testing.T) {
	a := newTestAccumulator()

	line := "Aggregated: 100 (2.0%) | 50.0 10.0 80.0"
	a.Apply(LogEvent{Text: line})

	logs := a.Logs()
	if len(logs) != 1 || logs[0] != line {
		t.Errorf("畸形汇总行应原样进日志: %v", logs)
	}
	if len(a.Series()) != 0 {
		t.Error("畸形汇总行不应产生时序点")
	}
	if a.Stats().TotalRequests != 0 {
		t.Errorf("畸形汇总行不应更新统计: %+v", a.Stats())
	}
}

// completed事件：追加终端标记、清除运行标记，此后一切事件被忽略
func TestAccumulator_CompletedIsTerminal(t *testing.T) {
	a := newTestAccumulator()

	a.Apply(LogEvent{Text: "before"})
	a.Apply(CompletedEvent{})

	if a.Running() {
		t.Error("completed后running应为false")
	}
	logs := a.Logs()
	if logs[len(logs)-1] != completedMarker {
		t.Errorf("最后一条日志应为终端标记, 实际 %q", logs[len(logs)-1])
	}

	// 终止后继续喂事件：不再有任何变更
	a.Apply(LogEvent{Text: "Aggregated: 999 (5.0%) | 1.0 1.0 1.0 | 9.9 0.1"})
	a.Apply(LogEvent{Text: "late line"})

	if len(a.Logs()) != len(logs) {
		t.Error("终止后日志不应再增长")
	}
	if len(a.Series()) != 0 {
		t.Error("终止后不应再接受时序点")
	}
	if a.Stats().TotalRequests != 0 {
		t.Error("终止后不应再覆盖统计")
	}
}

// 传输错误：错误行进日志，进入终态
func TestAccumulator_FailLeavesInspectableState(t *testing.T) {
	a := newTestAccumulator()
	a.Apply(LogEvent{Text: "partial"})

	a.Fail(errTransport)

	if a.Running() {
		t.Error("Fail后running应为false")
	}
	logs := a.Logs()
	last := logs[len(logs)-1]
	if last != errorLinePrefix+errTransport.Error() {
		t.Errorf("最后一条日志应为错误行, 实际 %q", last)
	}

	// 终态幂等：再次Fail不产生新日志
	a.Fail(errTransport)
	if len(a.Logs()) != len(logs) {
		t.Error("终态下重复Fail不应追加日志")
	}
}

// 日志容量上限：超出后只计数不追加（不修改既有内容，保持追加语义）
func TestAccumulator_LogCapacity(t *testing.T) {
	a := NewAccumulator(3, 10)

	for i := 0; i < 5; i++ {
		a.Apply(LogEvent{Text: "line"})
	}

	if got := len(a.Logs()); got != 3 {
		t.Errorf("日志数 = %d, 期望容量上限 3", got)
	}
	if a.DroppedLogs() != 2 {
		t.Errorf("DroppedLogs = %d, 期望 2", a.DroppedLogs())
	}
}

var errTransport = &transportError{}

type transportError struct{}

func (*transportError) Error() string { return "connection reset" }
