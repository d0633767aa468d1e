package response

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/permbase/pkg/errors"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Kind    string      `json:"kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	Code     int         `json:"code"`
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

// 响应码定义
const (
	CodeSuccess       = 0
	CodeError         = 1
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeValidateError = 422
	CodeServerError   = 500
)

// 响应消息定义
const (
	MsgSuccess       = "success"
	MsgUnauthorized  = "unauthorized"
	MsgForbidden     = "forbidden"
	MsgNotFound      = "not found"
	MsgServerError   = "server error"
)

// Success 成功响应
func Success(c *fiber.Ctx, data interface{}) error {
	return c.Status(http.StatusOK).JSON(Response{
		Code:    CodeSuccess,
		Message: MsgSuccess,
		Data:    data,
	})
}

// SuccessPage 分页成功响应
func SuccessPage(c *fiber.Ctx, data interface{}, total int64, page, pageSize int) error {
	return c.Status(http.StatusOK).JSON(PageResponse{
		Code:     CodeSuccess,
		Message:  MsgSuccess,
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Error 错误响应
func Error(c *fiber.Ctx, code int, message string) error {
	return c.Status(http.StatusOK).JSON(Response{
		Code:    code,
		Message: message,
	})
}

// FromError 根据错误类别生成响应
func FromError(c *fiber.Ctx, err error) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return c.Status(httpStatus(appErr.Kind)).JSON(Response{
			Code:    appErr.Code,
			Message: appErr.Message,
			Kind:    string(appErr.Kind),
		})
	}
	return ServerError(c, err.Error())
}

// httpStatus 错误类别对应HTTP状态码
func httpStatus(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation, errors.KindReferential:
		return http.StatusUnprocessableEntity
	case errors.KindConflict:
		return http.StatusConflict
	case errors.KindProtected, errors.KindAuthorization:
		return http.StatusForbidden
	case errors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest 请求错误
func BadRequest(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusBadRequest).JSON(Response{
		Code:    CodeError,
		Message: message,
	})
}

// Unauthorized 未授权
func Unauthorized(c *fiber.Ctx, message string) error {
	if message == "" {
		message = MsgUnauthorized
	}
	return c.Status(http.StatusUnauthorized).JSON(Response{
		Code:    CodeUnauthorized,
		Message: message,
	})
}

// Forbidden 禁止访问
func Forbidden(c *fiber.Ctx, message string) error {
	if message == "" {
		message = MsgForbidden
	}
	return c.Status(http.StatusForbidden).JSON(Response{
		Code:    CodeForbidden,
		Message: message,
	})
}

// NotFound 未找到
func NotFound(c *fiber.Ctx, message string) error {
	if message == "" {
		message = MsgNotFound
	}
	return c.Status(http.StatusNotFound).JSON(Response{
		Code:    CodeNotFound,
		Message: message,
	})
}

// ValidateError 验证错误
func ValidateError(c *fiber.Ctx, message string) error {
	return c.Status(http.StatusUnprocessableEntity).JSON(Response{
		Code:    CodeValidateError,
		Message: message,
	})
}

// ServerError 服务器错误
func ServerError(c *fiber.Ctx, message string) error {
	if message == "" {
		message = MsgServerError
	}
	return c.Status(http.StatusInternalServerError).JSON(Response{
		Code:    CodeServerError,
		Message: message,
	})
}
