package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDisabled(t *testing.T) {
	meter, err := New(&Config{Enabled: false})
	require.NoError(t, err)

	c, err := meter.Counter("x_total", "x")
	require.NoError(t, err)
	c.Inc() // 空实现不 panic
}

func TestCounterIdempotentCreate(t *testing.T) {
	meter, err := New(&Config{Enabled: true, Namespace: "test"})
	require.NoError(t, err)

	c1, err := meter.Counter("requests_total", "Total requests", "service")
	require.NoError(t, err)
	c2, err := meter.Counter("requests_total", "Total requests", "service")
	require.NoError(t, err)

	// 同名指标返回同一实例，不触发重复注册错误
	assert.Same(t, c1, c2)
}

func TestHandlerExposesMetrics(t *testing.T) {
	meter, err := New(&Config{Enabled: true, Namespace: "test"})
	require.NoError(t, err)

	c, err := meter.Counter("proxied_total", "Proxied requests", "service")
	require.NoError(t, err)
	c.Inc("item-service")
	c.Add(2, "list-service")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	meter.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "test_proxied_total")
	assert.Contains(t, body, `service="item-service"`)
}

func TestHTTPStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", HTTPStatusClass(200))
	assert.Equal(t, "2xx", HTTPStatusClass(202))
	assert.Equal(t, "4xx", HTTPStatusClass(404))
	assert.Equal(t, "5xx", HTTPStatusClass(503))
	assert.Equal(t, "unknown", HTTPStatusClass(0))
}
