package domain

import "errors"

// 校验错误（返回给调用方，作为内联提示展示，从不panic）
var (
	ErrInvalidLocator = errors.New("invalid video url")
	ErrEmptyMessage   = errors.New("message is empty")
	ErrOversizedInput = errors.New("input exceeds maximum length")
	ErrEmptyQueue     = errors.New("queue is empty")
	ErrNoSelection    = errors.New("no video selected")
	ErrUnknownEntry   = errors.New("unknown history entry")
)
