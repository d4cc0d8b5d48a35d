package listapp

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/cartmesh/bus"
	"github.com/ceyewan/cartmesh/clog"
)

// gin 上下文键
const (
	ctxKeyUserID    = "identity.user_id"
	ctxKeyUserEmail = "identity.user_email"
)

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": gin.H{"code": code, "message": message}})
}

// identityMiddleware 解析调用方身份
//
// 优先取网关注入的身份头；没有时尝试校验 Bearer 令牌；
// 两者都没有则拒绝。
func (a *App) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader("X-User-Id"); id != "" {
			c.Set(ctxKeyUserID, id)
			c.Set(ctxKeyUserEmail, c.GetHeader("X-User-Email"))
			c.Next()
			return
		}

		authz := c.GetHeader("Authorization")
		if authz != "" && a.validate != nil {
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				id, email, err := a.validate(c.Request.Context(), strings.TrimSpace(parts[1]))
				if err == nil && id != "" {
					c.Set(ctxKeyUserID, id)
					c.Set(ctxKeyUserEmail, email)
					c.Next()
					return
				}
				fail(c, http.StatusUnauthorized, "AUTH_INVALID", "token is invalid or expired")
				return
			}
		}

		fail(c, http.StatusUnauthorized, "AUTH_REQUIRED", "caller identity is required")
	}
}

func caller(c *gin.Context) (id, email string) {
	return c.GetString(ctxKeyUserID), c.GetString(ctxKeyUserEmail)
}

// ownedList 取调用方拥有的清单，不存在或不归属一律 404
//
// 不归属也报 404 而不是 403，避免泄露别人清单的存在性。
func (a *App) ownedList(c *gin.Context, id string) (List, bool) {
	userID, _ := caller(c)
	l, found := a.lists.Get(id)
	if !found || l.OwnerID != userID {
		fail(c, http.StatusNotFound, "NOT_FOUND", "list not found")
		return List{}, false
	}
	return l, true
}

// handleHealth 健康检查
func (a *App) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "list-service",
		"lists":   a.lists.Len(),
	})
}

// handleList 调用方自己的清单
func (a *App) handleList(c *gin.Context) {
	userID, _ := caller(c)
	out := []listView{}
	for _, id := range a.lists.Find(func(_ string, l List) bool { return l.OwnerID == userID }) {
		l, _ := a.lists.Get(id)
		out = append(out, listView{ID: id, List: l})
	}
	ok(c, http.StatusOK, out)
}

type listRequest struct {
	Name string `json:"name" binding:"required"`
}

// handleCreate 创建清单
func (a *App) handleCreate(c *gin.Context) {
	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}

	userID, email := caller(c)
	l := List{
		OwnerID:    userID,
		OwnerEmail: email,
		Name:       req.Name,
		Entries:    []Entry{},
		CreatedAt:  time.Now(),
	}
	id, err := a.lists.Insert(l)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to persist list")
		return
	}

	a.logger.InfoContext(c.Request.Context(), "list created",
		clog.String("list_id", id), clog.String("owner", userID))

	ok(c, http.StatusCreated, listView{ID: id, List: l})
}

// handleGet 按 ID 查询自己的清单
func (a *App) handleGet(c *gin.Context) {
	id := c.Param("id")
	l, found := a.ownedList(c, id)
	if !found {
		return
	}
	ok(c, http.StatusOK, listView{ID: id, List: l})
}

// handleUpdate 重命名清单
func (a *App) handleUpdate(c *gin.Context) {
	id := c.Param("id")
	if _, found := a.ownedList(c, id); !found {
		return
	}

	var req listRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}

	l, err := a.lists.Update(id, func(l List) (List, error) {
		l.Name = req.Name
		return l, nil
	})
	if err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "list not found")
		return
	}
	ok(c, http.StatusOK, listView{ID: id, List: l})
}

// handleDelete 删除清单
func (a *App) handleDelete(c *gin.Context) {
	id := c.Param("id")
	if _, found := a.ownedList(c, id); !found {
		return
	}
	if err := a.lists.Delete(id); err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "list not found")
		return
	}
	ok(c, http.StatusOK, gin.H{"deleted": id})
}

type entryRequest struct {
	ItemID   string  `json:"itemId"`
	Name     string  `json:"name" binding:"required"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// handleAddEntry 向清单追加条目
func (a *App) handleAddEntry(c *gin.Context) {
	id := c.Param("id")
	if _, found := a.ownedList(c, id); !found {
		return
	}

	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "name is required")
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	l, err := a.lists.Update(id, func(l List) (List, error) {
		l.Entries = append(l.Entries, Entry{
			ItemID:   req.ItemID,
			Name:     req.Name,
			Quantity: req.Quantity,
			Price:    req.Price,
		})
		return l, nil
	})
	if err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "list not found")
		return
	}
	ok(c, http.StatusCreated, listView{ID: id, List: l})
}

type entryUpdateRequest struct {
	Quantity  *int  `json:"quantity"`
	Purchased *bool `json:"purchased"`
}

// handleUpdateEntry 更新条目（数量、购买标记）
func (a *App) handleUpdateEntry(c *gin.Context) {
	id := c.Param("id")
	if _, found := a.ownedList(c, id); !found {
		return
	}

	idx, err := strconv.Atoi(c.Param("entry"))
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "entry index must be a number")
		return
	}

	var req entryUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid body")
		return
	}

	l, err := a.lists.Update(id, func(l List) (List, error) {
		if idx < 0 || idx >= len(l.Entries) {
			return l, ErrEntryOutOfRange
		}
		if req.Quantity != nil && *req.Quantity > 0 {
			l.Entries[idx].Quantity = *req.Quantity
		}
		if req.Purchased != nil {
			l.Entries[idx].Purchased = *req.Purchased
		}
		return l, nil
	})
	if err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "entry not found")
		return
	}
	ok(c, http.StatusOK, listView{ID: id, List: l})
}

// handleRemoveEntry 删除条目
func (a *App) handleRemoveEntry(c *gin.Context) {
	id := c.Param("id")
	if _, found := a.ownedList(c, id); !found {
		return
	}

	idx, err := strconv.Atoi(c.Param("entry"))
	if err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "entry index must be a number")
		return
	}

	l, err := a.lists.Update(id, func(l List) (List, error) {
		if idx < 0 || idx >= len(l.Entries) {
			return l, ErrEntryOutOfRange
		}
		l.Entries = append(l.Entries[:idx], l.Entries[idx+1:]...)
		return l, nil
	})
	if err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "entry not found")
		return
	}
	ok(c, http.StatusOK, listView{ID: id, List: l})
}

// handleSearch 在自己的清单里按名称搜索
func (a *App) handleSearch(c *gin.Context) {
	q := strings.ToLower(c.Query("q"))
	if q == "" {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "query parameter q is required")
		return
	}

	userID, _ := caller(c)
	out := []listView{}
	ids := a.lists.Find(func(_ string, l List) bool {
		return l.OwnerID == userID && strings.Contains(strings.ToLower(l.Name), q)
	})
	for _, id := range ids {
		l, _ := a.lists.Get(id)
		out = append(out, listView{ID: id, List: l})
	}
	ok(c, http.StatusOK, out)
}

// handleCount 自己的清单计数
func (a *App) handleCount(c *gin.Context) {
	userID, _ := caller(c)
	n := len(a.lists.Find(func(_ string, l List) bool { return l.OwnerID == userID }))
	ok(c, http.StatusOK, gin.H{"count": n})
}

// handleCheckout 结算：标记清单并发布事件，立即应答 202
//
// 发布是尽力而为：代理不可用时事件会丢，响应里的 queued 标记
// 把这个事实如实暴露给调用方，但状态码始终是 202。
func (a *App) handleCheckout(c *gin.Context) {
	id := c.Param("id")
	l, found := a.ownedList(c, id)
	if !found {
		return
	}

	now := time.Now()
	l, err := a.lists.Update(id, func(l List) (List, error) {
		l.CheckedOutAt = &now
		return l, nil
	})
	if err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "list not found")
		return
	}

	sum := l.summary()
	queued := a.events.TryPublish(c.Request.Context(), bus.TopicCheckoutCompleted, bus.CheckoutEvent{
		ListID:    id,
		UserEmail: l.OwnerEmail,
		Summary:   sum,
	})
	if !queued {
		a.logger.WarnContext(c.Request.Context(), "checkout event dropped",
			clog.String("list_id", id))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"data": gin.H{
			"listId":  id,
			"summary": sum,
			"queued":  queued,
		},
	})
}
