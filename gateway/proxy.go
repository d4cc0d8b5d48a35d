package gateway

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/clog"
)

// proxyHandler 创建一条路由的代理处理函数
//
// 处理顺序：发现实例 → 熔断器放行 → 改写路径并转发 → 透传响应。
// 传输失败（连接拒绝、超时）与下游应用错误严格区分：
// 前者计入熔断器并返回 503，后者原样透传且算作成功调用。
func (g *Gateway) proxyHandler(rt Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		inst, err := g.reg.Discover(rt.Service)
		if err != nil {
			g.logger.WarnContext(c.Request.Context(), "discovery failed",
				clog.String("service", rt.Service), clog.Error(err))
			respondError(c, http.StatusServiceUnavailable, CodeServiceUnavailable,
				"service is not available", rt.Service)
			return
		}

		done, err := g.brk.Allow(rt.Service)
		if err != nil {
			respondError(c, http.StatusServiceUnavailable, CodeCircuitOpen,
				"service is temporarily suspended", rt.Service)
			return
		}

		internalPath := rt.rewritePath(c.Request.URL.Path)
		target := inst.URL + internalPath
		if raw := c.Request.URL.RawQuery; raw != "" {
			target += "?" + raw
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), g.cfg.ProxyTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, c.Request.Method, target, c.Request.Body)
		if err != nil {
			done(false)
			respondError(c, http.StatusServiceUnavailable, CodeServiceUnavailable,
				"failed to build upstream request", rt.Service)
			return
		}
		copyProxyHeaders(req.Header, c.Request.Header)

		resp, err := g.client.Do(req)
		if err != nil {
			// 传输失败：计入熔断器，503 + 稳定错误码，绝不伪装成 500
			done(false)
			g.logger.WarnContext(ctx, "upstream transport failure",
				clog.String("service", rt.Service),
				clog.String("target", target),
				clog.Error(err))
			respondError(c, http.StatusServiceUnavailable, CodeServiceUnavailable,
				"service did not respond", rt.Service)
			return
		}
		defer resp.Body.Close()

		// 下游有应答就是成功调用，4xx/5xx 也原样透传
		done(true)
		relayResponse(c, resp)

		g.logger.DebugContext(ctx, "request proxied",
			clog.String("service", rt.Service),
			clog.String("method", c.Request.Method),
			clog.String("path", internalPath),
			clog.Int("status", resp.StatusCode))
	}
}

// copyProxyHeaders 复制请求头，剥掉逐跳头
//
// Host 由目标 URL 决定，Content-Length 由传输层重算。
func copyProxyHeaders(dst, src http.Header) {
	for k, vals := range src {
		if http.CanonicalHeaderKey(k) == "Content-Length" {
			continue
		}
		for _, v := range vals {
			dst.Add(k, v)
		}
	}
}

// relayResponse 原样透传下游响应
func relayResponse(c *gin.Context, resp *http.Response) {
	for k, vals := range resp.Header {
		if http.CanonicalHeaderKey(k) == "Content-Length" {
			continue
		}
		for _, v := range vals {
			c.Writer.Header().Add(k, v)
		}
	}
	c.Status(resp.StatusCode)
	_, _ = io.Copy(c.Writer, resp.Body)
}
