package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/clog"
)

// branch 聚合端点中一个下游分支的结果
//
// 分支失败只降级自身：Available 置 false、Data 置空，
// 不影响兄弟分支，也不影响整体 200。
type branch struct {
	Available bool   `json:"available"`
	Data      any    `json:"data"`
	Error     string `json:"error,omitempty"`
}

// branchCall 一次待执行的分支调用
type branchCall struct {
	name    string
	service string
	path    string
}

// handleDashboard 仪表盘聚合端点（需要认证）
//
// 并发取三块数据：调用方自己的清单、最近的商品页（有条数上限）、
// 商品分类列表。
func (g *Gateway) handleDashboard(c *gin.Context) {
	userID, userEmail, _ := userIdentity(c)

	calls := []branchCall{
		{name: "lists", service: "list-service", path: "/lists"},
		{name: "items", service: "item-service", path: fmt.Sprintf("/items?limit=%d", g.cfg.DashboardItemLimit)},
		{name: "categories", service: "item-service", path: "/items/categories"},
	}

	results := g.fanOut(c.Request.Context(), calls, userID, userEmail)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"lists":      results["lists"],
			"items":      results["items"],
			"categories": results["categories"],
		},
	})
}

// handleSearch 统一搜索端点
//
// 商品搜索永远执行；清单名过滤只在调用方已认证时追加，
// 且限定在调用方自己的清单内。
func (g *Gateway) handleSearch(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		respondError(c, http.StatusBadRequest, CodeValidation, "query parameter q is required", "")
		return
	}

	userID, userEmail, authed := userIdentity(c)

	calls := []branchCall{
		{name: "items", service: "item-service", path: "/items/search?q=" + url.QueryEscape(q)},
	}
	if authed {
		calls = append(calls, branchCall{
			name: "lists", service: "list-service", path: "/lists/search?q=" + url.QueryEscape(q),
		})
	}

	results := g.fanOut(c.Request.Context(), calls, userID, userEmail)

	data := gin.H{
		"query": q,
		"items": results["items"],
	}
	if authed {
		data["lists"] = results["lists"]
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// fanOut 并发执行全部分支调用并收集结果
//
// 每个分支的结局独立捕获，单分支失败不会取消或污染其他分支。
func (g *Gateway) fanOut(ctx context.Context, calls []branchCall, userID, userEmail string) map[string]branch {
	results := make([]branch, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call branchCall) {
			defer wg.Done()
			results[i] = g.callBranch(ctx, call, userID, userEmail)
		}(i, call)
	}
	wg.Wait()

	out := make(map[string]branch, len(calls))
	for i, call := range calls {
		out[call.name] = results[i]
	}
	return out
}

// callBranch 执行单个分支调用
//
// 任何失败（发现、熔断、传输、非 2xx、解析）都收敛为不可用分支。
func (g *Gateway) callBranch(ctx context.Context, call branchCall, userID, userEmail string) branch {
	unavailable := func(reason string) branch {
		g.logger.WarnContext(ctx, "aggregation branch degraded",
			clog.String("branch", call.name),
			clog.String("service", call.service),
			clog.String("reason", reason))
		return branch{Available: false, Data: nil, Error: reason}
	}

	inst, err := g.reg.Discover(call.service)
	if err != nil {
		return unavailable("service not available")
	}

	done, err := g.brk.Allow(call.service)
	if err != nil {
		return unavailable("service temporarily suspended")
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.ProxyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, inst.URL+call.path, nil)
	if err != nil {
		done(false)
		return unavailable("request build failed")
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
		req.Header.Set("X-User-Email", userEmail)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		done(false)
		return unavailable("service did not respond")
	}
	defer resp.Body.Close()
	done(true)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unavailable(fmt.Sprintf("upstream status %d", resp.StatusCode))
	}

	var payload struct {
		Success bool `json:"success"`
		Data    any  `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return unavailable("invalid upstream payload")
	}

	return branch{Available: true, Data: payload.Data}
}
