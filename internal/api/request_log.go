package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/property-flow/internal/auth"
	"github.com/mautops/property-flow/internal/metrics"
	"github.com/sirupsen/logrus"
)

// RequestLogMiddleware 请求日志和请求指标
// 指标按路由模板打标签,避免路径参数造成标签基数膨胀
func RequestLogMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		metrics.RecordAPIRequest(c.Request.Method, route, status, latency.Seconds())

		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency":    latency.String(),
			"ip":         c.ClientIP(),
			"user_id":    c.GetString(auth.ContextUserID),
			"username":   c.GetString(auth.ContextUsername),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("error", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Error("API request")
		case status >= 400:
			entry.Warn("API request")
		default:
			entry.Info("API request")
		}
	}
}
