package util

import "testing"

func TestParseFloat(t *testing.T) {
	if v, ok := ParseFloat(" 12.5 "); !ok || v != 12.5 {
		t.Errorf("ParseFloat(\" 12.5 \") = (%v, %v), 期望 (12.5, true)", v, ok)
	}
	if _, ok := ParseFloat("(2.0%)"); ok {
		t.Error("ParseFloat 应拒绝非数字输入")
	}
	if _, ok := ParseFloat(""); ok {
		t.Error("ParseFloat 应拒绝空串")
	}
}

func TestRound1(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{97.5, 97.5},
		{97.54, 97.5},
		{97.55, 97.6},
		{0, 0},
		{100, 100},
	}
	for _, tc := range cases {
		if got := Round1(tc.in); got != tc.want {
			t.Errorf("Round1(%v) = %v, 期望 %v", tc.in, got, tc.want)
		}
	}
}
