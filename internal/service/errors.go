package service

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration 请求的前置条件不满足（实验不存在、缺少组合、任务文件缺失）
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound 实验或盲评 ID 不存在（含已过期的预留）
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput 请求参数校验失败
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidTransition 实验状态机不允许的迁移
	ErrInvalidTransition = errors.New("invalid status transition")
)

// missingExperiment 同时匹配 ErrConfiguration 与 ErrNotFound
func missingExperiment(id uint) error {
	return fmt.Errorf("%w: %w: experiment %d", ErrConfiguration, ErrNotFound, id)
}
