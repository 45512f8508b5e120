package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/property-flow/internal/workflow"
)

// 非引擎错误使用的错误码
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

// statusByCode 引擎错误码到 HTTP 状态码
var statusByCode = map[string]int{
	workflow.CodeNotFound:          http.StatusNotFound,
	workflow.CodeInvalidTransition: http.StatusConflict,
	workflow.CodeForbidden:         http.StatusForbidden,
	workflow.CodeValidation:        http.StatusBadRequest,
	workflow.CodeStorage:           http.StatusInternalServerError,
	workflow.CodeConflict:          http.StatusConflict,
}

// HandleError 把错误写成统一响应
// 存储错误不向客户端暴露底层细节
func HandleError(c *gin.Context, err error) {
	var engineErr *workflow.Error
	if !errors.As(err, &engineErr) {
		_ = c.Error(err)
		Error(c, http.StatusInternalServerError, CodeInternal, "internal server error", "")
		return
	}

	status, ok := statusByCode[engineErr.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := engineErr.Message
	if engineErr.Code == workflow.CodeStorage {
		_ = c.Error(err)
		message = "storage error, retry or recalculate the process"
	}
	Error(c, status, engineErr.Code, message, "")
}

// ErrorHandlerMiddleware 兜底处理未写出响应的错误
func ErrorHandlerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		Error(c, http.StatusInternalServerError, CodeInternal, "internal server error", c.Errors.Last().Error())
	}
}
