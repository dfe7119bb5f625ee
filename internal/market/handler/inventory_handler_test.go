package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/bitfantasy/buildmart/internal/market/testutil"
)

func setupInventoryTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	svc := service.NewInventoryService(repos.Inventory, repos.Promo, nil)
	h := NewInventoryHandler(svc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/inventory")
	api.POST("", h.CreateItem)
	api.GET("", h.ListItems)
	api.GET("/categories", h.Categories)
	api.GET("/:id", h.GetItem)
	api.PUT("/:id", h.UpdateItem)
	api.DELETE("/:id", h.DeleteItem)
	api.POST("/price", h.SetPrice)
	api.GET("/price/:itemCode", h.GetPrice)
	api.POST("/shipping", h.SetShippingTable)
	api.GET("/shipping/calculate", h.CalculateShipping)
	api.POST("/promo", h.CreatePromo)
	api.POST("/promo/calculate", h.CalculatePromo)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestCreateItemAndVendorOwnership(t *testing.T) {
	env := setupInventoryTest(t)
	vendor := testutil.SeedTestUser(t, env.DB, "vend-inv-001", "供应商A", entity.RoleVendor)
	vendToken := testutil.GenerateTestToken(vendor.ID, "供应商A", entity.RoleVendor)

	// vendor 创建商品时归属自身，忽略传入的 vendor_id
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory",
		map[string]interface{}{
			"vendor_id":   "someone-else",
			"description": "OPC 43 水泥",
			"category":    entity.CategoryCement,
			"subcategory": "opc_43",
		}, vendToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["vendor_id"].(string) != vendor.ID {
		t.Fatalf("vendor item must belong to the vendor, got %v", data["vendor_id"])
	}
	itemID := data["id"].(string)

	// 其他供应商不能改
	otherToken := testutil.GenerateTestToken("vend-inv-002", "供应商B", entity.RoleVendor)
	desc := "改描述"
	w = testutil.DoRequest(env.Router, http.MethodPut, "/api/v1/inventory/"+itemID,
		map[string]interface{}{"description": desc}, otherToken)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign vendor, got %d", w.Code)
	}
}

func TestCreateItemRejectsUnknownCategory(t *testing.T) {
	env := setupInventoryTest(t)
	token := testutil.AdminToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory",
		map[string]interface{}{
			"vendor_id":   "vend-x",
			"description": "沙子",
			"category":    "sand",
		}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d: %s", w.Code, w.Body.String())
	}

	// 类目存在但子类目不匹配
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory",
		map[string]interface{}{
			"vendor_id":   "vend-x",
			"description": "水泥",
			"category":    entity.CategoryCement,
			"subcategory": "tmt_bar",
		}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for mismatched subcategory, got %d", w.Code)
	}
}

func TestSetPriceRecomputesTotal(t *testing.T) {
	env := setupInventoryTest(t)
	vendor := testutil.SeedTestUser(t, env.DB, "vend-price-001", "供应商", entity.RoleVendor)
	testutil.SeedTestItem(t, env.DB, "ITM-PRC-001", vendor.ID, 100, 0)
	token := testutil.AdminToken()

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/price",
		map[string]interface{}{
			"item_code":  "ITM-PRC-001",
			"unit_price": 100,
			"cgst":       9,
			"sgst":       9,
		}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["total_price"].(float64) != 118 {
		t.Fatalf("expected tax-inclusive 118, got %v", data["total_price"])
	}

	// 再次写入覆盖并重算
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/price",
		map[string]interface{}{
			"item_code":  "ITM-PRC-001",
			"unit_price": 200,
			"flat_tax":   5,
		}, token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["total_price"].(float64) != 210 {
		t.Fatalf("expected recomputed 210, got %v", data["total_price"])
	}

	w = testutil.DoRequest(env.Router, http.MethodGet, "/api/v1/inventory/price/ITM-PRC-001", nil, token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["unit_price"].(float64) != 200 {
		t.Fatalf("expected stored unit price 200, got %v", data["unit_price"])
	}
}

func TestShippingCalculateEndpoint(t *testing.T) {
	env := setupInventoryTest(t)
	vendor := testutil.SeedTestUser(t, env.DB, "vend-ship-001", "供应商", entity.RoleVendor)
	testutil.SeedTestItem(t, env.DB, "ITM-SHP-001", vendor.ID, 100, 0)
	token := testutil.AdminToken()

	// 没有运费表时按资源不存在处理
	w := testutil.DoRequest(env.Router, http.MethodGet,
		"/api/v1/inventory/shipping/calculate?item_code=ITM-SHP-001&order_value=60000", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without table, got %d", w.Code)
	}

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/shipping",
		map[string]interface{}{
			"item_code": "ITM-SHP-001",
			"band1_fee": 100, "band2_fee": 80, "band3_fee": 60, "band4_fee": 40, "band5_fee": 20,
		}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("set table: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodGet,
		"/api/v1/inventory/shipping/calculate?item_code=ITM-SHP-001&order_value=60000", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("calculate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["shipping_fee"].(float64) != 80 {
		t.Fatalf("expected band2 fee 80, got %v", data["shipping_fee"])
	}
}

func TestPromoCreateAndCalculate(t *testing.T) {
	env := setupInventoryTest(t)
	vendor := testutil.SeedTestUser(t, env.DB, "vend-prm-001", "供应商", entity.RoleVendor)
	testutil.SeedTestItem(t, env.DB, "ITM-PRM-001", vendor.ID, 100, 0)
	token := testutil.AdminToken()

	now := time.Now()
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/promo",
		map[string]interface{}{
			"item_code":           "ITM-PRM-001",
			"discount":            10,
			"discount_type":       entity.DiscountTypePercentage,
			"start_date":          now.Add(-time.Hour).Format(time.RFC3339),
			"end_date":            now.Add(24 * time.Hour).Format(time.RFC3339),
			"max_discount_amount": 40,
		}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create promo: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	promoCode := testutil.ParseResponse(w)["data"].(map[string]interface{})["promo_code"].(string)

	// 10% of 1000 = 100，封顶 40
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/promo/calculate",
		map[string]interface{}{"promo_code": promoCode, "order_value": 1000}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("calculate promo: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["discount"].(float64) != 40 {
		t.Fatalf("expected capped discount 40, got %v", data["discount"])
	}
	if data["final_value"].(float64) != 960 {
		t.Fatalf("expected final value 960, got %v", data["final_value"])
	}
	if data["state"].(string) != entity.PromoStateActive {
		t.Fatalf("expected active state, got %v", data["state"])
	}

	// 百分比超过100拒绝
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/inventory/promo",
		map[string]interface{}{
			"item_code":     "ITM-PRM-001",
			"discount":      120,
			"discount_type": entity.DiscountTypePercentage,
			"start_date":    now.Format(time.RFC3339),
			"end_date":      now.Add(time.Hour).Format(time.RFC3339),
		}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for >100%%, got %d", w.Code)
	}
}
