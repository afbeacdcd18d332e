// Package handler 提供API处理器
package handler

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/yejiban/yejiban/pkg/errors"
	"github.com/yejiban/yejiban/pkg/logger"
)

// Response 统一响应信封
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// sendJSON 发送成功响应
func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Success: true, Data: data})
}

// sendError 按错误类型发送失败响应
// AppError 携带错误码与对应 HTTP 状态；其余错误按 500 处理
func sendError(w http.ResponseWriter, err error) {
	status := apperrors.GetHTTPStatus(err)
	code := apperrors.GetCode(err)

	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Msg("请求处理失败")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   err.Error(),
		Code:    string(code),
	})
}

// sendBadRequest 发送参数错误响应
func sendBadRequest(w http.ResponseWriter, message string) {
	sendError(w, apperrors.New(apperrors.CodeInvalidInput, message))
}

// decodeJSON 解码请求体
func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
