package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPStatusClass 返回 HTTP 状态类标签值：1xx/2xx/3xx/4xx/5xx/unknown
//
// 用状态类而不是原始状态码做标签，避免标签基数膨胀。
func HTTPStatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// GinMiddleware 创建 Gin 指标中间件
//
// 记录两个指标：
//   - http_requests_total{service, method, route, status_class}
//   - http_request_duration_seconds{service, method, route}
//
// route 使用 gin 的路由模板（如 /api/items/*path）而不是原始路径，
// 控制标签基数。
func GinMiddleware(meter Meter, service string) gin.HandlerFunc {
	requests, _ := meter.Counter(
		"http_requests_total",
		"Total HTTP requests",
		"service", "method", "route", "status_class",
	)
	duration, _ := meter.Histogram(
		"http_request_duration_seconds",
		"HTTP request duration in seconds",
		nil,
		"service", "method", "route",
	)

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		if requests != nil {
			requests.Inc(service, c.Request.Method, route, HTTPStatusClass(c.Writer.Status()))
		}
		if duration != nil {
			duration.Observe(time.Since(start).Seconds(), service, c.Request.Method, route)
		}
	}
}
