package utils

import (
	"time"
)

// DaysSince 计算加入天数，未来时间按 0 处理
func DaysSince(t time.Time) int {
	if t.IsZero() {
		return 0
	}
	days := int(time.Since(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
