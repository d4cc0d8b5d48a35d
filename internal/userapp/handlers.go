package userapp

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/clog"
)

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"success": false, "error": gin.H{"code": code, "message": message}})
}

// handleHealth 健康检查
func (a *App) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "user-service",
		"users":   a.users.Len(),
	})
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// handleRegister 用户注册：创建账号并直接发令牌
func (a *App) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if ids := a.users.Find(func(_ string, u User) bool { return u.Email == req.Email }); len(ids) > 0 {
		fail(c, http.StatusConflict, "EMAIL_TAKEN", "email already registered")
		return
	}

	salt := newSalt()
	id, err := a.users.Insert(User{
		Email:        req.Email,
		Name:         req.Name,
		Salt:         salt,
		PasswordHash: hashPassword(req.Password, salt),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to persist user")
		return
	}

	token, err := a.authn.GenerateToken(id, req.Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue token")
		return
	}

	a.logger.InfoContext(c.Request.Context(), "user registered",
		clog.String("user_id", id), clog.String("email", req.Email))

	u, _ := a.users.Get(id)
	ok(c, http.StatusCreated, gin.H{"user": toPublic(id, u), "token": token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin 登录换令牌
func (a *App) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ids := a.users.Find(func(_ string, u User) bool { return u.Email == req.Email })
	if len(ids) == 0 {
		fail(c, http.StatusUnauthorized, "AUTH_INVALID", "invalid credentials")
		return
	}
	id := ids[0]
	u, _ := a.users.Get(id)
	if !verifyPassword(u, req.Password) {
		fail(c, http.StatusUnauthorized, "AUTH_INVALID", "invalid credentials")
		return
	}

	token, err := a.authn.GenerateToken(id, u.Email)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue token")
		return
	}

	ok(c, http.StatusOK, gin.H{"user": toPublic(id, u), "token": token})
}

type validateRequest struct {
	Token string `json:"token" binding:"required"`
}

// handleValidate 令牌校验（网关认证中间件的后端）
func (a *App) handleValidate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "token is required")
		return
	}

	claims, err := a.authn.ValidateToken(req.Token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "AUTH_INVALID", "token is invalid or expired")
		return
	}

	// 令牌里的用户可能已被删除
	u, found := a.users.Get(claims.UserID)
	if !found {
		fail(c, http.StatusUnauthorized, "AUTH_INVALID", "user no longer exists")
		return
	}

	ok(c, http.StatusOK, gin.H{"user": toPublic(claims.UserID, u)})
}

// handleList 用户列表
func (a *App) handleList(c *gin.Context) {
	all := a.users.List()
	out := make([]publicUser, 0, len(all))
	for id, u := range all {
		out = append(out, toPublic(id, u))
	}
	ok(c, http.StatusOK, out)
}

// handleCount 用户计数
func (a *App) handleCount(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"count": a.users.Len()})
}

// handleGet 按 ID 查询
func (a *App) handleGet(c *gin.Context) {
	id := c.Param("id")
	u, found := a.users.Get(id)
	if !found {
		fail(c, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}
	ok(c, http.StatusOK, toPublic(id, u))
}

type updateRequest struct {
	Name string `json:"name"`
}

// handleUpdate 更新用户资料
func (a *App) handleUpdate(c *gin.Context) {
	id := c.Param("id")

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
		return
	}

	u, err := a.users.Update(id, func(u User) (User, error) {
		if req.Name != "" {
			u.Name = req.Name
		}
		return u, nil
	})
	if err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}

	ok(c, http.StatusOK, toPublic(id, u))
}

// handleDelete 删除用户
func (a *App) handleDelete(c *gin.Context) {
	id := c.Param("id")
	if err := a.users.Delete(id); err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}

	a.logger.InfoContext(c.Request.Context(), "user deleted", clog.String("user_id", id))
	ok(c, http.StatusOK, gin.H{"deleted": id})
}

func toPublic(id string, u User) publicUser {
	return publicUser{ID: id, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}
