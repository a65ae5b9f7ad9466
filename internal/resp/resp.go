// Package resp 提供统一的JSON响应封装。
// 所有API响应使用相同的信封结构：{code, message, data, request_id, trace_id}，
// 业务码与HTTP状态码解耦，便于客户端统一处理。
package resp

import (
	"encoding/json"
	"net/http"
)

// Code 定义业务响应码
type Code int

const (
	CodeOK            Code = 0    // 成功
	CodeInvalidParam  Code = 1001 // 参数错误
	CodeInternalError Code = 1002 // 服务内部错误
	CodeTimeout       Code = 1003 // 请求超时
	CodeUnavailable   Code = 1004 // 底层数据源不可用
)

// HTTPStatusFromCode 返回业务码对应的缺省HTTP状态码
func HTTPStatusFromCode(code Code) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Response 表示统一响应信封
type Response[T any] struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Data      T      `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// WriteJSON 写入统一格式的JSON响应
func WriteJSON[T any](w http.ResponseWriter, status int, code Code, message string, data T, requestID, traceID string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	body := Response[T]{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: requestID,
		TraceID:   traceID,
	}

	// 编码失败时响应头已发出，只能放弃；调用方数据都是可序列化的领域对象
	_ = json.NewEncoder(w).Encode(body)
}

// OK 写入成功响应
func OK[T any](w http.ResponseWriter, data T, requestID, traceID string) {
	WriteJSON(w, http.StatusOK, CodeOK, "success", data, requestID, traceID)
}

// Error 写入错误响应（data为空）
func Error(w http.ResponseWriter, status int, code Code, message, requestID, traceID string) {
	WriteJSON[any](w, status, code, message, nil, requestID, traceID)
}
