package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeAuthService 模拟 user-service 的令牌校验端点
//
// 令牌 "good-token" 对应用户 u1，其余一律拒绝。
func fakeAuthService(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/validate" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Token string `json:"token"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Token != "good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false}`))
			return
		}
		w.Write([]byte(`{"success":true,"data":{"user":{"id":"u1","email":"ada@example.com"}}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeItemService 模拟 item-service 的目录端点
func fakeItemService(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/items":
			w.Write([]byte(`{"success":true,"data":[{"name":"milk"},{"name":"eggs"}]}`))
		case "/items/categories":
			w.Write([]byte(`{"success":true,"data":["dairy","bakery"]}`))
		case "/items/search":
			w.Write([]byte(`{"success":true,"data":[{"name":"milk"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeListService 模拟 list-service，记录收到的用户身份头
func fakeListService(t *testing.T, gotUser *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotUser != nil {
			*gotUser = r.Header.Get("X-User-Id")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[{"name":"weekly"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// dashboardBody 解析仪表盘响应
type dashboardBody struct {
	Success bool `json:"success"`
	Data    map[string]struct {
		Available bool `json:"available"`
		Data      any  `json:"data"`
	} `json:"data"`
}

// TestDashboardRequiresAuth 测试仪表盘的认证要求
func TestDashboardRequiresAuth(t *testing.T) {
	m := newTestMesh(t)
	m.register(t, "user-service", fakeAuthService(t).URL)

	// 缺令牌
	w := m.do(t, http.MethodGet, "/api/dashboard", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := errorCode(t, w); code != CodeAuthRequired {
		t.Fatalf("expected %s, got %s", CodeAuthRequired, code)
	}

	// 无效令牌
	w = m.do(t, http.MethodGet, "/api/dashboard", "",
		map[string]string{"Authorization": "Bearer bad-token"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if code := errorCode(t, w); code != CodeAuthInvalid {
		t.Fatalf("expected %s, got %s", CodeAuthInvalid, code)
	}
}

// TestDashboardAggregation 测试三分支聚合与用户身份注入
func TestDashboardAggregation(t *testing.T) {
	m := newTestMesh(t)

	var gotUser string
	m.register(t, "user-service", fakeAuthService(t).URL)
	m.register(t, "item-service", fakeItemService(t).URL)
	m.register(t, "list-service", fakeListService(t, &gotUser).URL)

	w := m.do(t, http.MethodGet, "/api/dashboard", "",
		map[string]string{"Authorization": "Bearer good-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body dashboardBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("dashboard body must be JSON: %v", err)
	}
	for _, name := range []string{"lists", "items", "categories"} {
		br, ok := body.Data[name]
		if !ok || !br.Available || br.Data == nil {
			t.Fatalf("branch %s must be available with data, got: %+v", name, body.Data)
		}
	}
	if gotUser != "u1" {
		t.Fatalf("list branch must carry the caller identity, got %q", gotUser)
	}
}

// TestDashboardPartialFailure 测试单分支失败只降级该分支
func TestDashboardPartialFailure(t *testing.T) {
	m := newTestMesh(t)

	m.register(t, "user-service", fakeAuthService(t).URL)
	m.register(t, "item-service", fakeItemService(t).URL)

	// list-service 注册到一个已经死掉的地址
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()
	m.register(t, "list-service", deadURL)

	w := m.do(t, http.MethodGet, "/api/dashboard", "",
		map[string]string{"Authorization": "Bearer good-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("partial failure must still be 200, got %d", w.Code)
	}

	var body dashboardBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("dashboard body must be JSON: %v", err)
	}
	if body.Data["lists"].Available {
		t.Fatal("failed branch must be marked unavailable")
	}
	if body.Data["lists"].Data != nil {
		t.Fatal("failed branch must carry null data")
	}
	if !body.Data["items"].Available || !body.Data["categories"].Available {
		t.Fatal("sibling branches must be unaffected")
	}
}

// TestSearchValidation 测试搜索参数校验
func TestSearchValidation(t *testing.T) {
	m := newTestMesh(t)

	w := m.do(t, http.MethodGet, "/api/search", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing q must return 400, got %d", w.Code)
	}
	if code := errorCode(t, w); code != CodeValidation {
		t.Fatalf("expected %s, got %s", CodeValidation, code)
	}
}

// TestSearchAnonymous 测试匿名搜索只查目录
func TestSearchAnonymous(t *testing.T) {
	m := newTestMesh(t)
	m.register(t, "item-service", fakeItemService(t).URL)

	w := m.do(t, http.MethodGet, "/api/search?q=milk", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("search body must be JSON: %v", err)
	}
	if _, ok := body.Data["items"]; !ok {
		t.Fatal("catalog search must always run")
	}
	if _, ok := body.Data["lists"]; ok {
		t.Fatal("anonymous search must not include the list branch")
	}
}

// TestSearchAuthenticated 测试认证搜索追加清单过滤
func TestSearchAuthenticated(t *testing.T) {
	m := newTestMesh(t)

	var gotUser string
	m.register(t, "user-service", fakeAuthService(t).URL)
	m.register(t, "item-service", fakeItemService(t).URL)
	m.register(t, "list-service", fakeListService(t, &gotUser).URL)

	w := m.do(t, http.MethodGet, "/api/search?q=milk", "",
		map[string]string{"Authorization": "Bearer good-token"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("search body must be JSON: %v", err)
	}
	if _, ok := body.Data["lists"]; !ok {
		t.Fatal("authenticated search must include the list branch")
	}
	if gotUser != "u1" {
		t.Fatalf("list search must be scoped to the caller, got %q", gotUser)
	}
}
