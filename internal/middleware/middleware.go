// Package middleware 提供请求日志、指标与 panic 恢复中间件
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/macrolog/internal/locale"
	"github.com/macrolog/internal/logging"
	"github.com/macrolog/internal/metrics"
	"go.uber.org/zap"
)

// RequestLogger 记录每个请求并更新 HTTP 指标
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// 未匹配路由时用固定标签，避免路径基数膨胀
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start).Seconds()

		metrics.RequestCount.WithLabelValues(c.Request.Method, path, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)

		logging.Logger.Info("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Float64("duration", duration),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery 捕获 panic 并返回 500
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logging.Logger.Error("panic_recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// Language 根据 ?lang= 或 Accept-Language 确定回复语言并写入请求 context
func Language() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := locale.Resolve(c.Query("lang"), c.GetHeader("Accept-Language"))
		c.Request = c.Request.WithContext(locale.WithLanguage(c.Request.Context(), lang))
		c.Header("Content-Language", lang)
		c.Next()
	}
}
