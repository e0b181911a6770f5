package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/pisarna/internal/accounts"
	"github.com/erazemk/pisarna/internal/auth"
	"github.com/erazemk/pisarna/internal/catalog"
	"github.com/erazemk/pisarna/internal/db"
	"github.com/erazemk/pisarna/internal/metrics"
	"github.com/erazemk/pisarna/internal/model"
	"github.com/erazemk/pisarna/internal/store"
	"github.com/erazemk/pisarna/internal/workflow"
)

const (
	testJWTSecret = "test-secret"
	testPassword  = "password123"
)

type testEnv struct {
	server *httptest.Server
	db     *sql.DB
	admin  string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	router := NewRouter(Deps{
		DB:       database,
		Tokens:   auth.NewTokens(testJWTSecret, time.Hour),
		Accounts: accounts.New(database),
		Catalog:  catalog.New(database),
		Workflow: workflow.New(database, m),
		Metrics:  m,
		Gatherer: reg,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	env := &testEnv{server: server, db: database}
	env.createUser(t, "Admin", "admin@example.com", model.RoleAdmin)
	env.admin = env.login(t, "admin@example.com", testPassword)
	return env
}

func (e *testEnv) createUser(t *testing.T, name, email, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u, err := store.CreateUser(context.Background(), e.db, name, email, string(hash), role)
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return u
}

func (e *testEnv) login(t *testing.T, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := http.Post(e.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp loginResponse
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

// do sends an authenticated JSON request and decodes the response into out
// when out is non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) createItem(t *testing.T, code string, stock int) model.Item {
	t.Helper()
	var item model.Item
	status := e.do(t, "POST", "/api/items", e.admin, map[string]any{
		"code": code, "name": "Item " + code, "category": "Kertas", "stock": stock, "unit": "Rim",
	}, &item)
	if status != http.StatusCreated {
		t.Fatalf("create item: expected 201, got %d", status)
	}
	return item
}

func TestLoginEndpoint(t *testing.T) {
	env := setupTestServer(t)

	body, _ := json.Marshal(map[string]string{"email": "admin@example.com", "password": "wrong"})
	resp, err := http.Post(env.server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}

	var errResp errorBody
	json.NewDecoder(resp.Body).Decode(&errResp)
	if errResp.Error.Code != "UNAUTHORIZED" {
		t.Errorf("expected UNAUTHORIZED code, got %q", errResp.Error.Code)
	}

	// Email matching ignores case.
	if token := env.login(t, "ADMIN@example.com", testPassword); token == "" {
		t.Error("expected token for mixed-case email")
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	for _, path := range []string{"/api/items", "/api/requests", "/api/users", "/api/stats"} {
		if status := env.do(t, "GET", path, "", nil, nil); status != http.StatusUnauthorized {
			t.Errorf("GET %s: expected 401, got %d", path, status)
		}
	}
	if status := env.do(t, "GET", "/api/items", "not-a-token", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 for garbage token, got %d", status)
	}
}

func TestRoleBasedAccess(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "Budi", "budi@example.com", model.RoleStaff)
	staff := env.login(t, "budi@example.com", testPassword)

	forbidden := []struct{ method, path string }{
		{"GET", "/api/users"},
		{"POST", "/api/items"},
		{"GET", "/api/mutations"},
		{"GET", "/api/activity"},
		{"GET", "/api/stats"},
		{"POST", "/api/requests/1/approve"},
		{"POST", "/api/requests/1/reject"},
	}
	for _, tt := range forbidden {
		if status := env.do(t, tt.method, tt.path, staff, map[string]any{}, nil); status != http.StatusForbidden {
			t.Errorf("staff %s %s: expected 403, got %d", tt.method, tt.path, status)
		}
	}

	if status := env.do(t, "GET", "/api/items", staff, nil, nil); status != http.StatusOK {
		t.Errorf("staff list items: expected 200, got %d", status)
	}
}

func TestItemsAPIFlow(t *testing.T) {
	env := setupTestServer(t)
	item := env.createItem(t, "ATK-001", 50)
	if item.ID == 0 || item.Stock != 50 {
		t.Fatalf("unexpected item: %+v", item)
	}

	var errResp errorBody
	status := env.do(t, "POST", "/api/items", env.admin, map[string]any{"code": "ATK-001", "name": "Dup"}, &errResp)
	if status != http.StatusConflict || errResp.Error.Code != "DUPLICATE" {
		t.Errorf("duplicate code: got %d %q", status, errResp.Error.Code)
	}

	status = env.do(t, "POST", "/api/items", env.admin, map[string]any{"code": "ATK-002", "name": "Neg", "stock": -1}, &errResp)
	if status != http.StatusBadRequest {
		t.Errorf("negative stock: expected 400, got %d", status)
	}

	var updated model.Item
	status = env.do(t, "PUT", fmt.Sprintf("/api/items/%d", item.ID), env.admin, map[string]any{"stock": 30}, &updated)
	if status != http.StatusOK || updated.Stock != 30 || updated.Name != item.Name {
		t.Errorf("update: got %d %+v", status, updated)
	}

	var items []model.Item
	env.do(t, "GET", "/api/items?category=Kertas", env.admin, nil, &items)
	if len(items) != 1 {
		t.Errorf("expected 1 item in category, got %d", len(items))
	}
	env.do(t, "GET", "/api/items?category=Tinta", env.admin, nil, &items)
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty array for unknown category, got %v", items)
	}

	if status := env.do(t, "GET", fmt.Sprintf("/api/items/%d/image", item.ID), env.admin, nil, nil); status != http.StatusNotFound {
		t.Errorf("image of item without photo: expected 404, got %d", status)
	}
}

func TestRequestApprovalFlow(t *testing.T) {
	env := setupTestServer(t)
	staffUser := env.createUser(t, "Sari", "sari@example.com", model.RoleStaff)
	staff := env.login(t, "sari@example.com", testPassword)
	item := env.createItem(t, "ATK-010", 10)

	var req model.Request
	status := env.do(t, "POST", "/api/requests", staff, map[string]any{"item_id": item.ID, "quantity": 6, "note": "rapat"}, &req)
	if status != http.StatusCreated {
		t.Fatalf("create request: expected 201, got %d", status)
	}
	if req.Status != model.RequestPending || req.RequesterID != staffUser.ID {
		t.Errorf("unexpected request: %+v", req)
	}

	var second model.Request
	env.do(t, "POST", "/api/requests", staff, map[string]any{"item_id": item.ID, "quantity": 6}, &second)

	var approved model.Request
	status = env.do(t, "POST", fmt.Sprintf("/api/requests/%d/approve", req.ID), env.admin, nil, &approved)
	if status != http.StatusOK || approved.Status != model.RequestApproved {
		t.Fatalf("approve: got %d %+v", status, approved)
	}

	var errResp errorBody
	status = env.do(t, "POST", fmt.Sprintf("/api/requests/%d/approve", second.ID), env.admin, nil, &errResp)
	if status != http.StatusConflict {
		t.Fatalf("second approve: expected 409, got %d", status)
	}
	if errResp.Error.Code != "INSUFFICIENT_STOCK" {
		t.Errorf("expected INSUFFICIENT_STOCK, got %q", errResp.Error.Code)
	}
	if errResp.Error.Details["requested"] != float64(6) || errResp.Error.Details["available"] != float64(4) {
		t.Errorf("unexpected details: %v", errResp.Error.Details)
	}

	// Approving with a smaller quantity succeeds.
	status = env.do(t, "POST", fmt.Sprintf("/api/requests/%d/approve", second.ID), env.admin, map[string]any{"quantity": 4}, &approved)
	if status != http.StatusOK || approved.Quantity != 4 {
		t.Fatalf("adjusted approve: got %d %+v", status, approved)
	}
	if !strings.Contains(approved.Note, "from 6 to 4") {
		t.Errorf("expected adjustment in note, got %q", approved.Note)
	}

	var got model.Item
	env.do(t, "GET", fmt.Sprintf("/api/items/%d", item.ID), env.admin, nil, &got)
	if got.Stock != 0 {
		t.Errorf("expected stock 0, got %d", got.Stock)
	}

	var muts []model.Mutation
	env.do(t, "GET", fmt.Sprintf("/api/mutations?item_id=%d", item.ID), env.admin, nil, &muts)
	if len(muts) != 2 {
		t.Errorf("expected 2 mutations, got %d", len(muts))
	}

	// Processed requests cannot be processed again.
	status = env.do(t, "POST", fmt.Sprintf("/api/requests/%d/reject", req.ID), env.admin, map[string]any{"reason": "late"}, &errResp)
	if status != http.StatusConflict || errResp.Error.Code != "INVALID_STATE" {
		t.Errorf("reject approved: got %d %q", status, errResp.Error.Code)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	env := setupTestServer(t)
	item := env.createItem(t, "ATK-020", 5)

	var req model.Request
	env.do(t, "POST", "/api/requests", env.admin, map[string]any{"item_id": item.ID, "quantity": 1}, &req)

	var errResp errorBody
	status := env.do(t, "POST", fmt.Sprintf("/api/requests/%d/reject", req.ID), env.admin, map[string]any{"reason": "   "}, &errResp)
	if status != http.StatusBadRequest || errResp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("blank reason: got %d %q", status, errResp.Error.Code)
	}

	var rejected model.Request
	status = env.do(t, "POST", fmt.Sprintf("/api/requests/%d/reject", req.ID), env.admin, map[string]any{"reason": "no budget"}, &rejected)
	if status != http.StatusOK || rejected.Status != model.RequestRejected || rejected.Note != "Rejected: no budget" {
		t.Errorf("reject: got %d %+v", status, rejected)
	}
}

func TestStaffSeeOwnRequests(t *testing.T) {
	env := setupTestServer(t)
	env.createUser(t, "Ani", "ani@example.com", model.RoleStaff)
	env.createUser(t, "Dedi", "dedi@example.com", model.RoleStaff)
	ani := env.login(t, "ani@example.com", testPassword)
	dedi := env.login(t, "dedi@example.com", testPassword)
	item := env.createItem(t, "ATK-030", 10)

	var req model.Request
	env.do(t, "POST", "/api/requests", ani, map[string]any{"item_id": item.ID, "quantity": 1}, &req)
	env.do(t, "POST", "/api/requests", dedi, map[string]any{"item_id": item.ID, "quantity": 2}, nil)

	var list []model.Request
	env.do(t, "GET", "/api/requests", ani, nil, &list)
	if len(list) != 1 || list[0].ID != req.ID {
		t.Errorf("staff should see only own requests, got %+v", list)
	}

	env.do(t, "GET", "/api/requests", env.admin, nil, &list)
	if len(list) != 2 {
		t.Errorf("admin should see all requests, got %d", len(list))
	}

	if status := env.do(t, "GET", fmt.Sprintf("/api/requests/%d", req.ID), dedi, nil, nil); status != http.StatusNotFound {
		t.Errorf("other staff reading request: expected 404, got %d", status)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	env := setupTestServer(t)

	if status := env.do(t, "POST", "/api/auth/logout", env.admin, nil, nil); status != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", status)
	}
	if status := env.do(t, "GET", "/api/auth/me", env.admin, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("revoked token: expected 401, got %d", status)
	}
}

func TestUserManagement(t *testing.T) {
	env := setupTestServer(t)

	var me model.User
	env.do(t, "GET", "/api/auth/me", env.admin, nil, &me)

	var errResp errorBody
	status := env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", me.ID), env.admin, nil, &errResp)
	if status != http.StatusBadRequest || errResp.Error.Code != "SELF_DELETE" {
		t.Errorf("self delete: got %d %q", status, errResp.Error.Code)
	}

	var created model.User
	status = env.do(t, "POST", "/api/users", env.admin, map[string]any{
		"name": "Rina", "email": "rina@example.com", "password": "rahasia-123",
	}, &created)
	if status != http.StatusCreated || created.Role != model.RoleStaff {
		t.Fatalf("create user: got %d %+v", status, created)
	}
	rina := env.login(t, "rina@example.com", "rahasia-123")

	if status := env.do(t, "DELETE", fmt.Sprintf("/api/users/%d", created.ID), env.admin, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete user: expected 204, got %d", status)
	}
	if status := env.do(t, "GET", "/api/items", rina, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("token of deleted user: expected 401, got %d", status)
	}
}

func TestStatsAndActivity(t *testing.T) {
	env := setupTestServer(t)
	item := env.createItem(t, "ATK-040", 15)
	env.createItem(t, "ATK-041", 100)
	env.do(t, "POST", "/api/requests", env.admin, map[string]any{"item_id": item.ID, "quantity": 1}, nil)

	var stats model.Stats
	if status := env.do(t, "GET", "/api/stats", env.admin, nil, &stats); status != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", status)
	}
	want := model.Stats{TotalItems: 2, TotalStock: 115, LowStockItems: 1, PendingRequests: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}

	var entries []model.ActivityLogEntry
	env.do(t, "GET", "/api/activity?limit=2", env.admin, nil, &entries)
	if len(entries) != 2 {
		t.Errorf("expected 2 activity entries, got %d", len(entries))
	}
	if status := env.do(t, "GET", "/api/activity?limit=zero", env.admin, nil, nil); status != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", status)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz: expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected request id header")
	}

	resp, err = http.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "pisarna_http_request_duration_seconds") {
		t.Error("expected http duration histogram in metrics output")
	}
}
