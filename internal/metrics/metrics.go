// Package metrics 定义 Prometheus 指标，通过 /metrics 暴露
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestCount HTTP 请求总数
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macrolog_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration HTTP 请求耗时
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "macrolog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// AIRequests AI 调用次数，outcome 取 ok/error/busy
	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "macrolog_ai_requests_total",
			Help: "AI nutritionist requests by action and outcome",
		},
		[]string{"action", "outcome"},
	)
)

var registerOnce sync.Once

// Register 将指标注册到默认 registry，重复调用是安全的
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCount, RequestDuration, AIRequests)
	})
}
