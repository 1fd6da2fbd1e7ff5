package utils

import (
	"strconv"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	return StringToIntDefault(s, 0)
}

// StringToIntDefault converts string to int, returns def if empty or invalid
func StringToIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

// StringToUint parses a positive id; ok is false for zero, negatives and garbage.
func StringToUint(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ClampPage normalizes offset/limit query values.
func ClampPage(offset, limit, defLimit, maxLimit int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return offset, limit
}
