package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"content-planner-backend/pkg/apperr"
)

// APIResponse 标准API响应结构
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError 错误信息结构
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Meta 列表元数据：Total 为用户的全部行数，Visible 为过滤后返回的行数
type Meta struct {
	Total   int `json:"total"`
	Visible int `json:"visible"`
}

// WriteJSONResponse 写入JSON响应
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	writeEnvelope(w, statusCode, APIResponse{
		Success: statusCode >= 200 && statusCode < 300,
		Data:    data,
	})
}

func writeEnvelope(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		// 如果编码失败，写入简单的错误响应
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// WriteSuccessResponse 写入成功响应
func WriteSuccessResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusOK, data)
}

// WriteCreatedResponse 写入创建成功响应
func WriteCreatedResponse(w http.ResponseWriter, data interface{}) {
	WriteJSONResponse(w, http.StatusCreated, data)
}

// WriteListResponse 写入带计数的列表响应
func WriteListResponse(w http.ResponseWriter, data interface{}, total, visible int) {
	writeEnvelope(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &Meta{Total: total, Visible: visible},
	})
}

// WriteErrorResponseWithCode 写入带错误代码的错误响应
func WriteErrorResponseWithCode(w http.ResponseWriter, statusCode int, code, message, details string) {
	writeEnvelope(w, statusCode, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequestResponse 写入400错误响应
func WriteBadRequestResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusBadRequest, "BAD_REQUEST", message, "")
}

// WriteUnauthorizedResponse 写入401错误响应
func WriteUnauthorizedResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusUnauthorized, "UNAUTHORIZED", message, "")
}

// WriteNotFoundResponse 写入404错误响应
func WriteNotFoundResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusNotFound, "NOT_FOUND", message, "")
}

// WriteInternalServerErrorResponse 写入500错误响应
func WriteInternalServerErrorResponse(w http.ResponseWriter, message string) {
	WriteErrorResponseWithCode(w, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", message, "")
}

// WriteValidationErrorResponse 写入验证错误响应
func WriteValidationErrorResponse(w http.ResponseWriter, message string, details string) {
	WriteErrorResponseWithCode(w, http.StatusBadRequest, "VALIDATION_ERROR", message, details)
}

// WriteAppError 按错误类型写入对应状态码；未分类的错误按远端错误处理
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		appErr = apperr.Remote(err)
	}

	switch appErr.Kind {
	case apperr.KindAuth:
		WriteUnauthorizedResponse(w, appErr.Message)
	case apperr.KindValidation:
		WriteValidationErrorResponse(w, appErr.Message, "")
	case apperr.KindNotFound:
		WriteNotFoundResponse(w, appErr.Message)
	default:
		WriteErrorResponseWithCode(w, http.StatusBadGateway, "REMOTE_ERROR", appErr.Message, "")
	}
}

// ParseJSONBody 解析JSON请求体
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// GetQueryParam 获取查询参数，如果不存在则返回默认值
func GetQueryParam(r *http.Request, key, defaultValue string) string {
	if value := r.URL.Query().Get(key); value != "" {
		return value
	}
	return defaultValue
}
