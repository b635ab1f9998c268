package gateway

import (
	"errors"
	"fmt"
	"time"
)

// EntityNotFoundError 表示网关对某实体返回 404。
// 只有「可选部署」类查询（协议组件 / store 在旧高度尚未部署）允许把它当空结果，
// 调用方显式点名的账户/资源缺失必须按错误上抛。
type EntityNotFoundError struct {
	Address string
	Path    string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("gateway: entity not found: %s (%s)", e.Address, e.Path)
}

// IsEntityNotFound 判断错误链中是否为实体不存在
func IsEntityNotFound(err error) bool {
	var target *EntityNotFoundError
	return errors.As(err, &target)
}

// StatusError 表示网关返回的非 2xx 响应（传输层错误，始终上抛，不在引擎内重试）
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: %s returned %d: %s", e.Path, e.Status, e.Body)
}

// AnchorNotFoundError 表示请求时间点之前不存在任何已提交交易
type AnchorNotFoundError struct {
	Timestamp time.Time
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("gateway: no committed transaction at or before %s", e.Timestamp.Format(time.RFC3339))
}
