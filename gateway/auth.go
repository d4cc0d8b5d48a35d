package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/clog"
)

// gin 上下文键
const (
	ctxKeyUserID    = "auth.user_id"
	ctxKeyUserEmail = "auth.user_email"
)

// validateResponse user-service /auth/validate 的应答
type validateResponse struct {
	Success bool `json:"success"`
	Data    struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	} `json:"data"`
}

// authRequired 强制认证中间件
//
// 没有 Bearer 令牌直接 401；令牌交给 user-service 校验，
// 校验服务不可达时返回 503 而不是误判成无效令牌。
func (g *Gateway) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respondError(c, http.StatusUnauthorized, CodeAuthRequired,
				"authorization header is required", "")
			return
		}
		g.validateAndContinue(c, token, true)
	}
}

// authOptional 可选认证中间件
//
// 没带令牌时继续走匿名路径；带了无效令牌仍然算认证失败。
func (g *Gateway) authOptional() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}
		g.validateAndContinue(c, token, false)
	}
}

// validateAndContinue 调用 user-service 校验令牌并注入用户身份
func (g *Gateway) validateAndContinue(c *gin.Context, token string, required bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), g.cfg.ProxyTimeout)
	defer cancel()

	result, err := g.validateToken(ctx, token)
	if err != nil {
		g.logger.WarnContext(ctx, "auth service unreachable", clog.Error(err))
		respondError(c, http.StatusServiceUnavailable, CodeServiceUnavailable,
			"authentication service is not available", g.cfg.AuthService)
		return
	}
	if result == nil {
		respondError(c, http.StatusUnauthorized, CodeAuthInvalid,
			"token is invalid or expired", "")
		return
	}

	c.Set(ctxKeyUserID, result.Data.User.ID)
	c.Set(ctxKeyUserEmail, result.Data.User.Email)
	c.Next()
}

// validateToken 向 user-service 发起令牌校验
//
// 返回 (nil, nil) 表示令牌被明确拒绝，错误只代表校验链路故障。
func (g *Gateway) validateToken(ctx context.Context, token string) (*validateResponse, error) {
	inst, err := g.reg.Discover(g.cfg.AuthService)
	if err != nil {
		return nil, err
	}

	done, err := g.brk.Allow(g.cfg.AuthService)
	if err != nil {
		return nil, err
	}

	body, _ := json.Marshal(gin.H{"token": token})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		inst.URL+"/auth/validate", bytes.NewReader(body))
	if err != nil {
		done(false)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		done(false)
		return nil, err
	}
	defer resp.Body.Close()
	done(true)

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK || !out.Success {
		return nil, nil
	}
	return &out, nil
}

// bearerToken 从 Authorization 头提取 Bearer 令牌
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// userIdentity 读取中间件注入的用户身份
func userIdentity(c *gin.Context) (id, email string, ok bool) {
	id = c.GetString(ctxKeyUserID)
	email = c.GetString(ctxKeyUserEmail)
	return id, email, id != ""
}
