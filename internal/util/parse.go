package util

import (
	"strconv"
	"strings"
)

// ParseFloat 解析浮点数字符串
// 返回 (value, ok)：空串或非法数字时 ok=false
func ParseFloat(raw string) (float64, bool) {
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// ParseInt 解析整数字符串
func ParseInt(raw string) (int, bool) {
	val, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return val, true
}

// Round1 四舍五入保留1位小数（success_rate等展示值统一口径）
func Round1(v float64) float64 {
	if v >= 0 {
		return float64(int64(v*10+0.5)) / 10
	}
	return float64(int64(v*10-0.5)) / 10
}
