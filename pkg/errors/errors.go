package errors

import (
	"errors"
	"fmt"
)

// Kind 错误类别，消费方按类别映射用户可见行为
type Kind string

const (
	KindValidation    Kind = "validation"     // 字段缺失/格式错误/标识符不合法
	KindConflict      Kind = "conflict"       // 名称重复、删除被使用中资源
	KindProtected     Kind = "protected"      // 系统角色/受保护名称
	KindReferential   Kind = "referential"    // 引用不存在的ID或成环
	KindNotFound      Kind = "not_found"      // 按ID查找无结果
	KindAuthorization Kind = "authorization"  // 调用方权限不足
	KindInternal      Kind = "internal"       // 存储/事务失败
)

// AppError 应用错误
type AppError struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 解包错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新错误
func New(kind Kind, code int, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Is 检查是否为指定错误
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 类型转换错误
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetKind 获取错误类别
func GetKind(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind 检查错误是否属于指定类别
func IsKind(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// GetCode 获取错误码
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 500
}

// GetMessage 获取错误消息
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Validation 创建验证错误
func Validation(message string) *AppError {
	return New(KindValidation, 422, message)
}

// Conflict 创建冲突错误
func Conflict(message string) *AppError {
	return New(KindConflict, 409, message)
}

// Duplicate 创建名称重复错误
func Duplicate(field string) *AppError {
	return New(KindConflict, 409, fmt.Sprintf("%s已存在", field))
}

// Protected 创建受保护资源错误
func Protected(resource string) *AppError {
	return New(KindProtected, 403, fmt.Sprintf("%s为系统内置，禁止修改或删除", resource))
}

// Referential 创建引用错误
func Referential(message string) *AppError {
	return New(KindReferential, 422, message)
}

// NotFound 创建未找到错误
func NotFound(resource string) *AppError {
	return New(KindNotFound, 404, fmt.Sprintf("%s不存在", resource))
}

// Forbidden 创建权限不足错误
func Forbidden(message string) *AppError {
	if message == "" {
		message = "权限不足"
	}
	return New(KindAuthorization, 403, message)
}

// Unauthorized 创建未认证错误
func Unauthorized(message string) *AppError {
	if message == "" {
		message = "未授权"
	}
	return New(KindAuthorization, 401, message)
}

// Internal 创建内部错误
func Internal(message string) *AppError {
	if message == "" {
		message = "服务器内部错误"
	}
	return New(KindInternal, 500, message)
}

// WrapInternal 包装为内部错误，保留底层错误链
func WrapInternal(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return &AppError{
		Kind:    KindInternal,
		Code:    500,
		Message: "服务器内部错误",
		Err:     err,
	}
}
