package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/clog"
	"github.com/ceyewan/cartmesh/registry"
	"github.com/ceyewan/cartmesh/xerrors"
)

// handleHealth 网关自身健康检查
func (g *Gateway) handleHealth(c *gin.Context) {
	stats := g.reg.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"service":            "gateway",
		"registeredServices": stats.Total,
		"healthyServices":    stats.Healthy,
	})
}

// handleIndex 服务索引
func (g *Gateway) handleIndex(c *gin.Context) {
	routes := make([]gin.H, 0, len(g.routes))
	for _, rt := range g.routes {
		routes = append(routes, gin.H{
			"prefix":  rt.Prefix,
			"service": rt.Service,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"service": "cartmesh-gateway",
		"routes":  routes,
		"endpoints": []string{
			"GET /health", "GET /registry", "GET /debug/services",
			"GET /api/dashboard", "GET /api/search",
		},
	})
}

// handleListServices 注册表只读视图
func (g *Gateway) handleListServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"services": g.reg.List(),
			"stats":    g.reg.Stats(),
		},
	})
}

// handleDebugServices 排障视图：注册表加熔断器快照
func (g *Gateway) handleDebugServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"services": g.reg.List(),
			"breakers": g.brk.Snapshot(),
		},
	})
}

// registerRequest 服务自注册请求体
type registerRequest struct {
	Name      string   `json:"name" binding:"required"`
	URL       string   `json:"url" binding:"required"`
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
	PID       int      `json:"pid"`
}

// handleRegister 服务自注册，幂等 upsert
func (g *Gateway) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, "name and url are required", "")
		return
	}

	inst := &registry.ServiceInstance{
		Name:      req.Name,
		URL:       req.URL,
		Version:   req.Version,
		Endpoints: req.Endpoints,
		PID:       req.PID,
	}
	if err := g.reg.Register(inst); err != nil {
		respondError(c, http.StatusBadRequest, CodeValidation, err.Error(), "")
		return
	}

	g.logger.InfoContext(c.Request.Context(), "service registered",
		clog.String("service", req.Name), clog.String("url", req.URL))

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": gin.H{"name": req.Name}})
}

// handleDeregister 服务注销（优雅下线路径）
func (g *Gateway) handleDeregister(c *gin.Context) {
	name := c.Param("name")
	if err := g.reg.Deregister(name); err != nil {
		if xerrors.Is(err, registry.ErrServiceNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "service is not registered", name)
			return
		}
		respondError(c, http.StatusInternalServerError, CodeValidation, err.Error(), name)
		return
	}

	g.logger.InfoContext(c.Request.Context(), "service deregistered",
		clog.String("service", name))

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleHeartbeat 心跳：翻转健康标记，不需要重新注册
func (g *Gateway) handleHeartbeat(c *gin.Context) {
	name := c.Param("name")
	if err := g.reg.UpdateHealth(name, true); err != nil {
		if xerrors.Is(err, registry.ErrServiceNotFound) {
			respondError(c, http.StatusNotFound, CodeNotFound, "service is not registered", name)
			return
		}
		respondError(c, http.StatusInternalServerError, CodeValidation, err.Error(), name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
