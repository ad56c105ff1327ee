// Package analytics 把上游返回的原始聚合窗口记录整理成图表可用的序列。
// 纯函数实现：不持有状态，不做I/O，同样的输入（和now）产出完全一致的结果。
package analytics

import (
	"sort"
	"strings"
	"time"

	"apimon/internal/config"
	"apimon/internal/model"
	"apimon/internal/util"
)

// istZone 图表标签固定使用印度标准时间（UTC+5:30）
// 固定偏移，不依赖系统tzdata
var istZone = time.FixedZone("IST", 5*3600+1800)

// 无时区标记的window_start按以下格式尝试解析（上游输出的朴素UTC时间串）
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Cutoff 根据时间范围选择器计算过滤截止时间
// 支持 1h/24h/7d/30d/all，未知选择器回退到24h规则，all返回纪元原点（不过滤）
func Cutoff(selector string, now time.Time) time.Time {
	switch selector {
	case "1h":
		return now.Add(-1 * time.Hour)
	case "24h":
		return now.Add(-24 * time.Hour)
	case "7d":
		return now.AddDate(0, 0, -7)
	case "30d":
		return now.AddDate(0, 0, -30)
	case "all":
		return time.Unix(0, 0).UTC()
	default:
		return now.Add(-24 * time.Hour)
	}
}

// ParseWindowStart 解析窗口起始时间戳
// 带Z或显式偏移的串按标记解析；无标记的朴素串一律按UTC解释
// （朴素时间串在UTC和本地时间之间有歧义，统一按UTC消除歧义）
func ParseWindowStart(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatForCharts 把原始分析记录整理为图表序列
//   - 只保留 window_start >= cutoff 的记录
//   - 按时间升序排列
//   - 标签渲染为IST时区12小时制 hh:mm（与浏览者本地时区无关）
//   - success_rate = success/request*100 保留1位小数，request_count=0时恒为0
//
// 时间戳无法解析的记录直接跳过。空输入返回空切片。
func FormatForCharts(records []model.AnalyticsRecord, selector string, now time.Time) []model.ChartPoint {
	if len(records) == 0 {
		return []model.ChartPoint{}
	}

	cutoff := Cutoff(selector, now)

	type parsed struct {
		rec model.AnalyticsRecord
		ts  time.Time
	}
	kept := make([]parsed, 0, len(records))
	for _, rec := range records {
		ts, ok := ParseWindowStart(rec.WindowStart)
		if !ok {
			continue
		}
		if ts.Before(cutoff) {
			continue
		}
		kept = append(kept, parsed{rec: rec, ts: ts})
	}

	sort.Slice(kept, func(i, j int) bool {
		return kept[i].ts.Before(kept[j].ts)
	})

	points := make([]model.ChartPoint, 0, len(kept))
	for _, p := range kept {
		var rate float64
		if p.rec.RequestCount > 0 {
			rate = util.Round1(float64(p.rec.SuccessCount) / float64(p.rec.RequestCount) * 100)
		}

		points = append(points, model.ChartPoint{
			Time:        p.ts.In(istZone).Format("03:04 PM"),
			Timestamp:   p.ts.UnixMilli(),
			Requests:    p.rec.RequestCount,
			Errors:      p.rec.ErrorCount,
			Latency:     p.rec.AvgResponseTimeMs,
			SuccessRate: rate,
		})
	}
	return points
}

// NormalizeRange 校验时间范围选择器，非法值回退默认
func NormalizeRange(selector string) string {
	switch selector {
	case "1h", "24h", "7d", "30d", "all":
		return selector
	default:
		return config.DefaultAnalyticsRange
	}
}
