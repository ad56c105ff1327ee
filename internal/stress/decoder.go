// Package stress 实现压测遥测流的增量解码与会话状态维护。
//
// 上游 /stress/start 的响应体是一条长连接的NDJSON事件流（每行一个JSON对象），
// 块边界与记录边界不对齐。解码器采用拉取式设计：Feed喂入一块字节，返回本次
// 新完成的事件列表；I/O循环留在调用方（internal/app）作为薄适配层。
package stress

import (
	"bytes"
	"strings"

	"apimon/internal/config"
	"apimon/internal/util"

	"github.com/bytedance/sonic"
)

// Event 遥测事件的显式标签变体
// 解码边界只产出这两种形状，下游不可能误处理未知形状
type Event interface {
	isEvent()
}

// LogEvent 一条压测日志行（{"log": "..."}）
type LogEvent struct {
	Text string
}

// CompletedEvent 压测结束信号（{"status": "completed"}）
type CompletedEvent struct{}

func (LogEvent) isEvent()       {}
func (CompletedEvent) isEvent() {}

// LineDecoder NDJSON遥测流的增量解码器
// 维护跨块的未完成行缓冲；只负责字节到事件的转换，不做I/O，不持有会话状态
type LineDecoder struct {
	pending  bytes.Buffer // 未遇到换行符的尾部数据
	overflow bool         // 当前行超长，丢弃至下一个换行符
}

// NewLineDecoder 创建遥测流解码器
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{}
}

// Feed 喂入一块字节，返回本次新完成的事件
// 一条记录可能跨越多个块；最后一个不完整片段保留到下次Feed
// 无法解析为JSON的行静默丢弃，不中断流
func (d *LineDecoder) Feed(chunk []byte) []Event {
	var events []Event

	data := chunk
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}

		line := data[:idx]
		data = data[idx+1:]

		if d.overflow {
			// 超长行的剩余部分，丢到换行为止
			d.overflow = false
			d.pending.Reset()
			continue
		}

		if d.pending.Len() > 0 {
			d.pending.Write(line)
			line = append([]byte(nil), d.pending.Bytes()...)
			d.pending.Reset()
		}

		if ev, ok := decodeLine(line); ok {
			events = append(events, ev)
		}
	}

	// 保留尾部不完整片段（防御：限制单行最大长度）
	if len(data) > 0 && !d.overflow {
		if d.pending.Len()+len(data) > config.MaxTelemetryLine {
			d.pending.Reset()
			d.overflow = true
		} else {
			d.pending.Write(data)
		}
	}

	return events
}

// Finish 流结束时冲刷尾部未换行的最后一行
// 参考行为会丢掉这条残行；这里选择解析它（更不丢数据，决策见DESIGN.md）
// Finish是终结操作：调用后缓冲清空，解码器不应再Feed
func (d *LineDecoder) Finish() []Event {
	if d.overflow || d.pending.Len() == 0 {
		d.overflow = false
		d.pending.Reset()
		return nil
	}

	line := append([]byte(nil), d.pending.Bytes()...)
	d.pending.Reset()

	if ev, ok := decodeLine(line); ok {
		return []Event{ev}
	}
	return nil
}

// telemetryRecord 上游遥测记录的两种已知形状
type telemetryRecord struct {
	Log    *string `json:"log"`
	Status string  `json:"status"`
}

// decodeLine 解析单行遥测记录
// 空行、非JSON行、未知形状一律返回 ok=false（静默容错）
func decodeLine(raw []byte) (Event, bool) {
	line := bytes.TrimSpace(bytes.TrimRight(raw, "\r"))
	if len(line) == 0 {
		return nil, false
	}

	var rec telemetryRecord
	if err := sonic.Unmarshal(line, &rec); err != nil {
		return nil, false
	}

	if rec.Log != nil {
		return LogEvent{Text: *rec.Log}, true
	}
	if rec.Status == "completed" {
		return CompletedEvent{}, true
	}
	return nil, false
}

// ============================================================================
// Aggregated 汇总行解析
// ============================================================================

// aggregatedPrefix 汇总行的固定前缀（Locust周期性输出的累计统计行）
const aggregatedPrefix = "Aggregated"

// Summary 从一条Aggregated汇总行解析出的统计快照
type Summary struct {
	TotalRequests int
	FailRate      float64 // 百分比数值，如 2.5
	AvgLatency    float64 // ms
	MaxLatency    float64 // ms
	RPS           float64
	FailPerSec    float64
}

// IsAggregatedLine 判断日志行是否为汇总行
func IsAggregatedLine(text string) bool {
	return strings.HasPrefix(text, aggregatedPrefix)
}

// ParseSummaryLine 解析Aggregated汇总行
// 格式为竖线分隔的三段：请求段 | 延迟段 | 吞吐段
//   - 请求段：第2个token是累计请求数，括号里是失败百分比，如 "(2.5%)"
//   - 延迟段：数值token依次为 平均/最小/最大 延迟（ms）
//   - 吞吐段：数值token依次为 每秒请求数/每秒失败数
//
// 段数不为3或任一必需数值解析失败时返回 ok=false（调用方只记日志，跳过统计更新）
func ParseSummaryLine(text string) (Summary, bool) {
	var s Summary

	parts := strings.Split(text, "|")
	if len(parts) != 3 {
		return s, false
	}

	// 请求段
	reqTokens := strings.Fields(strings.TrimSpace(parts[0]))
	if len(reqTokens) < 2 {
		return s, false
	}
	total, ok := util.ParseInt(reqTokens[1])
	if !ok {
		return s, false
	}
	failRate, ok := parseParenPercent(parts[0])
	if !ok {
		return s, false
	}

	// 延迟段：平均/最小/最大
	latency := numericTokens(parts[1])
	if len(latency) < 3 {
		return s, false
	}

	// 吞吐段：rps / 每秒失败数
	rate := numericTokens(parts[2])
	if len(rate) < 1 {
		return s, false
	}

	s.TotalRequests = total
	s.FailRate = failRate
	s.AvgLatency = latency[0]
	s.MaxLatency = latency[2]
	s.RPS = rate[0]
	if len(rate) > 1 {
		s.FailPerSec = rate[1]
	}
	return s, true
}

// parseParenPercent 提取括号内的百分比数值，如 "(2.5%)" -> 2.5
func parseParenPercent(segment string) (float64, bool) {
	open := strings.Index(segment, "(")
	if open == -1 {
		return 0, false
	}
	rest := segment[open+1:]
	close := strings.Index(rest, "%")
	if close == -1 {
		return 0, false
	}
	return util.ParseFloat(rest[:close])
}

// numericTokens 提取段内所有可解析为数字的token（容忍夹杂的单位词）
func numericTokens(segment string) []float64 {
	tokens := strings.Fields(strings.TrimSpace(segment))
	nums := make([]float64, 0, len(tokens))
	for _, tok := range tokens {
		if v, ok := util.ParseFloat(tok); ok {
			nums = append(nums, v)
		}
	}
	return nums
}
