package app

import (
	"errors"
	"net/http"

	"apimon/internal/gateway"

	"github.com/gin-gonic/gin"
)

// APIResponse 标准API响应结构
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// RespondJSON 发送成功的JSON响应
func RespondJSON[T any](c *gin.Context, code int, data T) {
	c.JSON(code, APIResponse[T]{
		Success: code >= 200 && code < 300,
		Data:    data,
	})
}

// RespondJSONWithCount 发送带计数的JSON响应（列表端点）
func RespondJSONWithCount[T any](c *gin.Context, code int, data T, count int) {
	c.JSON(code, APIResponse[T]{
		Success: code >= 200 && code < 300,
		Data:    data,
		Count:   count,
	})
}

// RespondError 发送错误响应
// 上游错误保留上游的状态码和消息原文，其余按传入状态码返回
func RespondError(c *gin.Context, code int, err error) {
	var errMsg string
	if err != nil {
		errMsg = err.Error()

		var ue *gateway.UpstreamError
		if errors.As(err, &ue) {
			code = ue.Status
			errMsg = ue.Message
		}
	}
	c.JSON(code, APIResponse[any]{
		Success: false,
		Error:   errMsg,
	})
}

// RespondErrorMsg 发送错误响应（仅消息）
func RespondErrorMsg(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse[any]{
		Success: false,
		Error:   message,
	})
}

// RespondUnauthorized 401快捷方法
func RespondUnauthorized(c *gin.Context, message string) {
	RespondErrorMsg(c, http.StatusUnauthorized, message)
}
