package handler

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/buildmart/internal/config"
	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/bitfantasy/buildmart/internal/market/testutil"
)

func setupAuthTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	cfg := &config.Config{}
	cfg.JWT.Secret = testutil.JWTSecret
	cfg.JWT.Issuer = "buildmart"
	cfg.JWT.AccessTokenExpire = time.Hour
	svc := service.NewAuthService(repos.User, nil, nil, cfg)
	h := NewAuthHandler(svc, cfg)

	router := testutil.SetupRouter()
	router.POST("/api/v1/auth/signup", h.Signup)
	api := testutil.AuthGroup(router, "/api/v1/users")
	api.GET("", h.ListUsers)
	api.PUT("/:id/status", h.SetUserStatus)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestSignupRoleRestriction(t *testing.T) {
	env := setupAuthTest(t)

	body := map[string]interface{}{
		"name":     "张三",
		"email":    "zhangsan@test.com",
		"mobile":   fmt.Sprintf("139%08d", time.Now().UnixNano()%100000000),
		"password": "password123",
		"role":     entity.RoleAdmin,
	}
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/auth/signup", body, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("admin self signup should be rejected, got %d", w.Code)
	}

	body["role"] = entity.RoleCustomer
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/auth/signup", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("customer signup should succeed, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"].(string) != entity.UserStatusActive {
		t.Fatalf("new user should be active, got %v", data["status"])
	}

	// 邮箱重复
	body["mobile"] = fmt.Sprintf("138%08d", time.Now().UnixNano()%100000000)
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/auth/signup", body, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email should be rejected, got %d", w.Code)
	}
}

func TestListUsersFilterByRole(t *testing.T) {
	env := setupAuthTest(t)
	testutil.SeedTestUser(t, env.DB, "usr-v-001", "供应商甲", entity.RoleVendor)
	testutil.SeedTestUser(t, env.DB, "usr-v-002", "供应商乙", entity.RoleVendor)
	testutil.SeedTestUser(t, env.DB, "usr-c-001", "客户甲", entity.RoleCustomer)

	w := testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/users?role=vendor", nil, testutil.AdminToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	if int(pagination["total"].(float64)) != 2 {
		t.Fatalf("expected 2 vendors, got %v", pagination["total"])
	}
}

func TestSetUserStatusDisable(t *testing.T) {
	env := setupAuthTest(t)
	user := testutil.SeedTestUser(t, env.DB, "usr-d-001", "待禁用", entity.RoleCustomer)

	w := testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/users/"+user.ID+"/status",
		map[string]interface{}{"status": "disabled"}, testutil.AdminToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["status"].(string) != entity.UserStatusDisabled {
		t.Fatalf("expected disabled, got %v", data["status"])
	}

	// 非法状态
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/users/"+user.ID+"/status",
		map[string]interface{}{"status": "frozen"}, testutil.AdminToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid status should be rejected, got %d", w.Code)
	}

	// 不存在的用户
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/users/no-such-user/status",
		map[string]interface{}{"status": "active"}, testutil.AdminToken())
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing user should be 404, got %d", w.Code)
	}
}
