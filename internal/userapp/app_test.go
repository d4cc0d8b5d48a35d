package userapp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := New(&Config{
		DataPath:   filepath.Join(t.TempDir(), "users.json"),
		AuthSecret: "test-secret",
	})
	if err != nil {
		t.Fatalf("New should not fail, got: %v", err)
	}
	return app
}

func do(t *testing.T, app *App, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response must be JSON: %v (%s)", err, w.Body.String())
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("data must decode: %v (%s)", err, env.Data)
	}
}

// TestRegisterLoginValidate 测试注册、登录、令牌校验全链路
func TestRegisterLoginValidate(t *testing.T) {
	app := newTestApp(t)

	// 注册拿到令牌
	w := do(t, app, http.MethodPost, "/auth/register",
		`{"email":"Ada@Example.com","password":"secret","name":"Ada"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register must return 201, got %d: %s", w.Code, w.Body.String())
	}
	var reg struct {
		User  struct{ ID, Email string } `json:"user"`
		Token string                     `json:"token"`
	}
	decodeData(t, w, &reg)
	if reg.Token == "" || reg.User.ID == "" {
		t.Fatalf("register must return user and token, got: %+v", reg)
	}
	// 邮箱归一化为小写
	if reg.User.Email != "ada@example.com" {
		t.Fatalf("email must be normalized, got %q", reg.User.Email)
	}

	// 重复注册被拒绝
	w = do(t, app, http.MethodPost, "/auth/register",
		`{"email":"ada@example.com","password":"other"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate email must return 409, got %d", w.Code)
	}

	// 登录
	w = do(t, app, http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"secret"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login must return 200, got %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	decodeData(t, w, &login)

	// 错口令
	w = do(t, app, http.MethodPost, "/auth/login",
		`{"email":"ada@example.com","password":"wrong"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password must return 401, got %d", w.Code)
	}

	// 校验令牌（网关依赖的契约）
	w = do(t, app, http.MethodPost, "/auth/validate", `{"token":"`+login.Token+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("validate must return 200, got %d: %s", w.Code, w.Body.String())
	}
	var val struct {
		User struct{ ID, Email string } `json:"user"`
	}
	decodeData(t, w, &val)
	if val.User.ID != reg.User.ID {
		t.Fatalf("validated user mismatch: %q vs %q", val.User.ID, reg.User.ID)
	}

	// 脏令牌
	w = do(t, app, http.MethodPost, "/auth/validate", `{"token":"garbage"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token must return 401, got %d", w.Code)
	}
}

// TestUserCRUD 测试用户资源的标准操作
func TestUserCRUD(t *testing.T) {
	app := newTestApp(t)

	w := do(t, app, http.MethodPost, "/auth/register",
		`{"email":"bob@example.com","password":"secret","name":"Bob"}`)
	var reg struct {
		User struct{ ID string } `json:"user"`
	}
	decodeData(t, w, &reg)
	id := reg.User.ID

	// 查询：响应不包含口令材料
	w = do(t, app, http.MethodGet, "/users/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get must return 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "passwordHash") || strings.Contains(w.Body.String(), "salt") {
		t.Fatal("password material must never leave the service")
	}

	// 更新
	w = do(t, app, http.MethodPut, "/users/"+id, `{"name":"Robert"}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Robert") {
		t.Fatalf("update must apply, got %d: %s", w.Code, w.Body.String())
	}

	// 计数
	w = do(t, app, http.MethodGet, "/users/count", "")
	if !strings.Contains(w.Body.String(), `"count":1`) {
		t.Fatalf("count must be 1, got: %s", w.Body.String())
	}

	// 删除
	w = do(t, app, http.MethodDelete, "/users/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete must return 200, got %d", w.Code)
	}
	w = do(t, app, http.MethodGet, "/users/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted user must be gone, got %d", w.Code)
	}
}

// TestHealth 测试健康检查契约
func TestHealth(t *testing.T) {
	app := newTestApp(t)

	w := do(t, app, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "ok" || body["service"] != "user-service" {
		t.Fatalf("unexpected health body: %v", body)
	}
}
