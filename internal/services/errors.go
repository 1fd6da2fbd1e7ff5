package services

import "errors"

// 领域错误，由 handlers 统一映射为 HTTP 状态码
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("not authorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("duplicate")
)
