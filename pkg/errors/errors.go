// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown       Code = "UNKNOWN"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeInvalidInput  Code = "INVALID_INPUT"
	CodeNotFound      Code = "NOT_FOUND"
	CodeAlreadyExists Code = "ALREADY_EXISTS"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeTimeout       Code = "TIMEOUT"
	CodeRateLimited   Code = "RATE_LIMITED"

	// 合并/聚合相关
	CodeInvalidDateRange Code = "INVALID_DATE_RANGE"
	CodeMergeFailed      Code = "MERGE_FAILED"
	CodeUnknownEmployee  Code = "UNKNOWN_EMPLOYEE"
	CodeAliasConflict    Code = "ALIAS_CONFLICT"

	// 导入相关
	CodeDuplicateName Code = "DUPLICATE_NAME"
	CodeBlankField    Code = "BLANK_FIELD"
	CodeOversold      Code = "OVERSOLD"

	// 存档/目标相关
	CodeRecordExists Code = "RECORD_EXISTS"

	// 外部协作方相关
	CodeAdvisorUnavailable Code = "ADVISOR_UNAVAILABLE"
	CodeOCRFailed          Code = "OCR_FAILED"

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// clone 返回可安全修饰的副本
// 预定义错误是包级共享实例，WithX 直接改写会让并发请求互相覆盖字段
func (e *AppError) clone() *AppError {
	c := *e
	if e.Fields != nil {
		c.Fields = make(map[string]interface{}, len(e.Fields))
		for k, v := range e.Fields {
			c.Fields[k] = v
		}
	}
	return &c
}

// WithDetails 添加详细信息，返回副本
func (e *AppError) WithDetails(details string) *AppError {
	c := e.clone()
	c.Details = details
	return c
}

// WithCause 添加原因，返回副本
func (e *AppError) WithCause(cause error) *AppError {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithField 添加字段，返回副本
func (e *AppError) WithField(key string, value interface{}) *AppError {
	c := e.clone()
	if c.Fields == nil {
		c.Fields = make(map[string]interface{})
	}
	c.Fields[key] = value
	return c
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail, CodeInvalidDateRange,
		CodeDuplicateName, CodeBlankField:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeRecordExists, CodeAliasConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnknownEmployee, CodeOversold:
		return http.StatusUnprocessableEntity
	case CodeAdvisorUnavailable, CodeOCRFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定类型
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// 预定义错误
var (
	ErrNotFound        = New(CodeNotFound, "资源不存在")
	ErrInvalidInput    = New(CodeInvalidInput, "输入参数无效")
	ErrUnauthorized    = New(CodeUnauthorized, "未授权访问")
	ErrForbidden       = New(CodeForbidden, "禁止访问")
	ErrInternal        = New(CodeInternal, "内部错误")
	ErrRecordExists    = New(CodeRecordExists, "该日期已有存档，覆盖需显式确认")
	ErrUnknownEmployee = New(CodeUnknownEmployee, "姓名无法匹配任何员工")
)
