package itemapp

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
	app, err := New(&Config{DataPath: filepath.Join(t.TempDir(), "items.json")})
	if err != nil {
		t.Fatalf("New should not fail, got: %v", err)
	}
	return app
}

func do(t *testing.T, app *App, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)
	return w
}

func createItem(t *testing.T, app *App, body string) string {
	t.Helper()
	w := do(t, app, http.MethodPost, "/items", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create must return 201, got %d: %s", w.Code, w.Body.String())
	}
	var env struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &env)
	return env.Data.ID
}

// TestItemCRUD 测试商品的标准操作
func TestItemCRUD(t *testing.T) {
	app := newTestApp(t)

	id := createItem(t, app, `{"name":"milk","category":"dairy","price":3.5,"unit":"l"}`)

	// 查询
	w := do(t, app, http.MethodGet, "/items/"+id, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "milk") {
		t.Fatalf("get must return the item, got %d: %s", w.Code, w.Body.String())
	}

	// 缺名字被拒绝
	w = do(t, app, http.MethodPost, "/items", `{"price":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing name must return 400, got %d", w.Code)
	}

	// 更新
	w = do(t, app, http.MethodPut, "/items/"+id, `{"name":"oat milk","category":"dairy","price":4.5}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "oat milk") {
		t.Fatalf("update must apply, got %d: %s", w.Code, w.Body.String())
	}

	// 删除
	w = do(t, app, http.MethodDelete, "/items/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("delete must return 200, got %d", w.Code)
	}
	w = do(t, app, http.MethodGet, "/items/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted item must be gone, got %d", w.Code)
	}
}

// TestListWithLimit 测试列表截断
func TestListWithLimit(t *testing.T) {
	app := newTestApp(t)

	createItem(t, app, `{"name":"milk"}`)
	createItem(t, app, `{"name":"eggs"}`)
	createItem(t, app, `{"name":"bread"}`)

	w := do(t, app, http.MethodGet, "/items?limit=2", "")
	var env struct {
		Data []json.RawMessage `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &env)
	if len(env.Data) != 2 {
		t.Fatalf("limit must cap the page, got %d items", len(env.Data))
	}
}

// TestSearch 测试文本搜索
func TestSearch(t *testing.T) {
	app := newTestApp(t)

	createItem(t, app, `{"name":"Whole Milk","category":"dairy"}`)
	createItem(t, app, `{"name":"bread","category":"bakery"}`)

	// 大小写不敏感的名称匹配
	w := do(t, app, http.MethodGet, "/items/search?q=milk", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Whole Milk") {
		t.Fatalf("search must match by name, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "bread") {
		t.Fatal("search must not return non-matching items")
	}

	// 分类也参与匹配
	w = do(t, app, http.MethodGet, "/items/search?q=bakery", "")
	if !strings.Contains(w.Body.String(), "bread") {
		t.Fatalf("search must match by category, got: %s", w.Body.String())
	}

	// 缺参数
	w = do(t, app, http.MethodGet, "/items/search", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing q must return 400, got %d", w.Code)
	}
}

// TestCategories 测试分类去重列表
func TestCategories(t *testing.T) {
	app := newTestApp(t)

	createItem(t, app, `{"name":"milk","category":"dairy"}`)
	createItem(t, app, `{"name":"cheese","category":"dairy"}`)
	createItem(t, app, `{"name":"bread","category":"bakery"}`)
	createItem(t, app, `{"name":"mystery"}`)

	w := do(t, app, http.MethodGet, "/items/categories", "")
	var env struct {
		Data []string `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &env)
	if len(env.Data) != 2 || env.Data[0] != "bakery" || env.Data[1] != "dairy" {
		t.Fatalf("categories must be deduplicated and sorted, got: %v", env.Data)
	}
}
