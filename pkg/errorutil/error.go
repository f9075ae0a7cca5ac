package errorutil

import (
	"errors"
	"fmt"
)

// Kind 错误类别（同步管线错误分类）
type Kind string

const (
	// KindMalformedPayload 报文缺失必填字段，不可重试，丢弃该单
	KindMalformedPayload Kind = "malformed_payload"
	// KindTransientNetwork 网络瞬时故障，延迟重试
	KindTransientNetwork Kind = "transient_network"
	// KindUnresolvedProduct 商品货号无法在目录中解析，订单不落库
	KindUnresolvedProduct Kind = "unresolved_product"
	// KindNoAccountForProfile Profile 未绑定内部账号，订单不落库
	KindNoAccountForProfile Kind = "no_account_for_profile"
	// KindIllegalTransition 非法状态流转，按 no-op 处理
	KindIllegalTransition Kind = "illegal_transition"
	// KindNotFound 目标不存在（订单/账号/货号）
	KindNotFound Kind = "not_found"
	// KindConflict 乐观锁版本冲突，可重试
	KindConflict Kind = "conflict"
)

// Error 错误结构（包含类别与可重试标记）
type Error struct {
	Kind       Kind   `json:"kind"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Message
}

// MalformedPayload 创建报文格式错误
func MalformedPayload(field string) *Error {
	return &Error{
		Kind:      KindMalformedPayload,
		Code:      400,
		Message:   fmt.Sprintf("malformed payload: missing or invalid field %q", field),
		Retryable: false,
	}
}

// TransientNetwork 创建网络瞬时错误
func TransientNetwork(message string) *Error {
	return &Error{
		Kind:      KindTransientNetwork,
		Code:      500,
		Message:   message,
		Retryable: true,
	}
}

// TransientNetworkWrap 包装底层网络错误
func TransientNetworkWrap(message string, err error) *Error {
	e := TransientNetwork(message)
	if err != nil {
		e.DevDetails = err.Error()
	}
	return e
}

// UnresolvedProduct 创建货号解析失败错误
func UnresolvedProduct(article string) *Error {
	return &Error{
		Kind:      KindUnresolvedProduct,
		Code:      422,
		Message:   fmt.Sprintf("article %q not found in catalog", article),
		Retryable: false,
	}
}

// NoAccountForProfile 创建账号缺失错误
func NoAccountForProfile(profileID int64) *Error {
	return &Error{
		Kind:      KindNoAccountForProfile,
		Code:      422,
		Message:   fmt.Sprintf("no internal account bound to profile %d", profileID),
		Retryable: false,
	}
}

// IllegalTransition 创建非法流转错误（调用方记录日志后按 no-op 处理）
func IllegalTransition(from, to string) *Error {
	return &Error{
		Kind:      KindIllegalTransition,
		Code:      409,
		Message:   fmt.Sprintf("illegal status transition %s -> %s", from, to),
		Retryable: false,
	}
}

// NotFound 创建未找到错误
func NotFound(message string) *Error {
	return &Error{
		Kind:      KindNotFound,
		Code:      404,
		Message:   message,
		Retryable: false,
	}
}

// Conflict 创建版本冲突错误（订单被并发写入，可重试）
func Conflict(message string) *Error {
	return &Error{
		Kind:      KindConflict,
		Code:      409,
		Message:   message,
		Retryable: true,
	}
}

// Retriable 创建可重试错误（网络错误、临时故障等）
func Retriable(message string) *Error {
	return &Error{
		Kind:      KindTransientNetwork,
		Code:      500,
		Message:   message,
		Retryable: true,
	}
}

// NonRetriable 创建不可重试错误（参数错误、业务规则错误等）
func NonRetriable(message string) *Error {
	return &Error{
		Code:      400,
		Message:   message,
		Retryable: false,
	}
}

// Wrap 包装错误（自动判断是否可重试）
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	// 如果已经是 Error 类型，直接返回
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// 默认为不可重试错误
	return &Error{
		Code:       500,
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
	}
}

// IsKind 判断错误类别
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsRetryable 判断错误是否可重试
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// UnWrapResponse 解包错误（用于 Response）
func UnWrapResponse(err error) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err)
}
