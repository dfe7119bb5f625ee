package handler

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/bitfantasy/buildmart/internal/market/testutil"
	"go.uber.org/zap"
)

type nopScheduler struct{}

func (nopScheduler) Schedule(string, time.Duration) error { return nil }

type orderTestEnv struct {
	*testutil.TestEnv
	repos      *repository.Repositories
	orderSvc   *service.OrderService
	paymentSvc *service.PaymentService
}

func setupOrderTest(t *testing.T) *orderTestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)

	repos := repository.NewRepositories(db)
	orderSvc := service.NewOrderService(repos.Order, repos.Inventory, repos.Promo)
	paymentSvc := service.NewPaymentService(repos.Payment, repos.Order, time.Millisecond, zap.NewNop())
	paymentSvc.SetScheduler(nopScheduler{})

	orderH := NewOrderHandler(orderSvc, paymentSvc)
	vendorH := NewVendorHandler(orderSvc)
	adminH := NewAdminHandler(orderSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1/order")
	api.POST("/cart/add", orderH.AddToCart)
	api.GET("/customer/orders", orderH.ListOrders)
	api.GET("/customer/orders/:leadId", orderH.GetOrder)
	api.PUT("/customer/orders/:leadId", orderH.UpdateDeliveryInfo)
	api.DELETE("/customer/orders/:leadId/items/:itemCode", orderH.RemoveItem)
	api.POST("/customer/orders/:leadId/place", orderH.Place)
	api.DELETE("/customer/orders/:leadId", orderH.Cancel)
	api.POST("/customer/orders/:leadId/payment", orderH.InitiatePayment)
	api.GET("/customer/payments/:invcNum", orderH.GetPaymentStatus)
	api.POST("/vendor/orders/:leadId/accept", vendorH.Accept)
	api.POST("/vendor/orders/:leadId/reject", vendorH.Reject)
	api.PUT("/vendor/orders/:leadId/status", vendorH.UpdateStatus)
	api.PUT("/vendor/orders/:leadId/delivery", vendorH.UpdateDelivery)
	api.POST("/admin/orders/:leadId/cancel", adminH.Cancel)
	api.POST("/admin/orders/:leadId/confirm-payment", adminH.ConfirmPayment)
	api.POST("/admin/orders/:leadId/confirm", adminH.ConfirmOrder)
	api.PUT("/admin/orders/:leadId/status", adminH.ForceSetStatus)
	api.GET("/admin/orders/:leadId/history", adminH.History)

	return &orderTestEnv{
		TestEnv:    &testutil.TestEnv{DB: db, Router: router, T: t},
		repos:      repos,
		orderSvc:   orderSvc,
		paymentSvc: paymentSvc,
	}
}

func seedMarketplace(t *testing.T, env *orderTestEnv) (customerID, vendorID string) {
	t.Helper()
	customer := testutil.SeedTestUser(t, env.DB, "cust-001", "测试客户", entity.RoleCustomer)
	vendor := testutil.SeedTestUser(t, env.DB, "vend-001", "测试供应商", entity.RoleVendor)
	testutil.SeedTestItem(t, env.DB, "ITM-CEM-001", vendor.ID, 100, 0)
	return customer.ID, vendor.ID
}

func placeOrder(t *testing.T, env *orderTestEnv, customerID, token string, qty float64) *entity.Order {
	t.Helper()
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/cart/add",
		map[string]interface{}{"item_code": "ITM-CEM-001", "qty": qty}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("add to cart: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	leadID := resp["data"].(map[string]interface{})["lead_id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/customer/orders/"+leadID+"/place",
		map[string]interface{}{"delivery_address": "测试地址1号", "pincode": "560001"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("place order: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	order, err := env.repos.Order.GetByLeadID(context.Background(), leadID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	return order
}

func TestCartAddAccumulatesAndPlace(t *testing.T) {
	env := setupOrderTest(t)
	customerID, _ := seedMarketplace(t, env)
	token := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)

	// qty=3 @ 100
	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/cart/add",
		map[string]interface{}{"item_code": "ITM-CEM-001", "qty": 3}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["total_amount"].(float64) != 300 {
		t.Fatalf("expected total 300, got %v", data["total_amount"])
	}
	if data["order_date"] != nil {
		t.Fatal("cart must not have an order date")
	}
	leadID := data["lead_id"].(string)

	// 同商品再加 2，数量累加而不是新行项
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/cart/add",
		map[string]interface{}{"item_code": "ITM-CEM-001", "qty": 2}, token)
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["lead_id"].(string) != leadID {
		t.Fatal("same vendor cart must be reused")
	}
	if data["total_qty"].(float64) != 5 || data["total_amount"].(float64) != 500 {
		t.Fatalf("expected totals 5/500, got %v/%v", data["total_qty"], data["total_amount"])
	}
	items := data["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(items))
	}

	// 提交
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/customer/orders/"+leadID+"/place",
		map[string]interface{}{"delivery_address": "测试地址1号", "pincode": "560001"}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("place: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["order_date"] == nil {
		t.Fatal("placed order must have an order date")
	}
	if data["status"].(string) != entity.OrderStatusPending {
		t.Fatalf("placed order should stay pending, got %v", data["status"])
	}
}

func TestEmptyCartCannotBePlacedAndDeactivates(t *testing.T) {
	env := setupOrderTest(t)
	customerID, _ := seedMarketplace(t, env)
	token := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/cart/add",
		map[string]interface{}{"item_code": "ITM-CEM-001", "qty": 1}, token)
	leadID := testutil.ParseResponse(w)["data"].(map[string]interface{})["lead_id"].(string)

	// 删空后订单停用
	w = testutil.DoRequest(env.Router, http.MethodDelete,
		"/api/v1/order/customer/orders/"+leadID+"/items/ITM-CEM-001", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("remove item: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["active"].(bool) {
		t.Fatal("emptied cart must be deactivated")
	}

	// 停用订单不能再提交
	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/customer/orders/"+leadID+"/place",
		map[string]interface{}{"delivery_address": "测试地址1号", "pincode": "560001"}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("place deactivated order: expected 400, got %d", w.Code)
	}
}

func TestDifferentVendorStartsNewOrder(t *testing.T) {
	env := setupOrderTest(t)
	customerID, _ := seedMarketplace(t, env)
	vendor2 := testutil.SeedTestUser(t, env.DB, "vend-002", "供应商二", entity.RoleVendor)
	testutil.SeedTestItem(t, env.DB, "ITM-IRN-001", vendor2.ID, 250, 0)
	token := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/cart/add",
		map[string]interface{}{"item_code": "ITM-CEM-001", "qty": 1}, token)
	lead1 := testutil.ParseResponse(w)["data"].(map[string]interface{})["lead_id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/cart/add",
		map[string]interface{}{"item_code": "ITM-IRN-001", "qty": 1}, token)
	lead2 := testutil.ParseResponse(w)["data"].(map[string]interface{})["lead_id"].(string)

	if lead1 == lead2 {
		t.Fatal("items of different vendors must never share an order")
	}
}

type countingScheduler struct{ calls int }

func (s *countingScheduler) Schedule(string, time.Duration) error { s.calls++; return nil }

func TestRepeatInitiateReschedulesProcessingPayment(t *testing.T) {
	env := setupOrderTest(t)
	sched := &countingScheduler{}
	env.paymentSvc.SetScheduler(sched)

	customerID, vendorID := seedMarketplace(t, env)
	custToken := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)
	vendToken := testutil.GenerateTestToken(vendorID, "测试供应商", entity.RoleVendor)

	order := placeOrder(t, env, customerID, custToken, 2)
	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order/vendor/orders/"+order.LeadID+"/accept", nil, vendToken)
	if w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order/customer/orders/"+order.LeadID+"/payment", nil, custToken)
	if w.Code != http.StatusOK {
		t.Fatalf("initiate payment: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	first := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if sched.calls != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", sched.calls)
	}

	// 重复发起：返回同一条处理中的记录，并补投一次完成消息，
	// 防止首次投递失败后支付永远停在 processing
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order/customer/orders/"+order.LeadID+"/payment", nil, custToken)
	if w.Code != http.StatusOK {
		t.Fatalf("repeat initiate: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	second := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if second["id"].(string) != first["id"].(string) {
		t.Fatalf("repeat initiate must return the same payment record")
	}
	if second["status"].(string) != entity.PaymentStatusProcessing {
		t.Fatalf("expected processing, got %v", second["status"])
	}
	if sched.calls != 2 {
		t.Fatalf("repeat initiate should reschedule, got %d calls", sched.calls)
	}
}

func TestVendorAcceptAndPaymentCascade(t *testing.T) {
	env := setupOrderTest(t)
	customerID, vendorID := seedMarketplace(t, env)
	custToken := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)
	vendToken := testutil.GenerateTestToken(vendorID, "测试供应商", entity.RoleVendor)

	order := placeOrder(t, env, customerID, custToken, 3)

	// 供应商接单
	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order/vendor/orders/"+order.LeadID+"/accept", nil, vendToken)
	if w.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 客户发起支付
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order/customer/orders/"+order.LeadID+"/payment", nil, custToken)
	if w.Code != http.StatusOK {
		t.Fatalf("initiate payment: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	payData := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if payData["status"].(string) != entity.PaymentStatusProcessing {
		t.Fatalf("expected processing payment, got %v", payData["status"])
	}

	// 延迟完成回调（测试直接驱动）
	if err := env.paymentSvc.Complete(context.Background(), order.InvcNum, true); err != nil {
		t.Fatalf("complete payment: %v", err)
	}

	// 支付终态
	w = testutil.DoRequest(env.Router, http.MethodGet,
		"/api/v1/order/customer/payments/"+order.InvcNum, nil, custToken)
	payData = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if payData["status"].(string) != entity.PaymentStatusCompleted {
		t.Fatalf("expected completed payment, got %v", payData["status"])
	}

	// 订单级联推进到 order_confirmed，历史里两步各一条
	reloaded, err := env.repos.Order.GetByLeadID(context.Background(), order.LeadID)
	if err != nil {
		t.Fatalf("reload order: %v", err)
	}
	if reloaded.Status != entity.OrderStatusConfirmed {
		t.Fatalf("expected order_confirmed, got %s", reloaded.Status)
	}
	events, err := env.repos.Order.History(context.Background(), order.LeadID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	seen := map[string]bool{}
	for _, e := range events {
		seen[e.Status] = true
	}
	if !seen[entity.OrderStatusPaymentDone] || !seen[entity.OrderStatusConfirmed] {
		t.Fatalf("history must record payment_done and order_confirmed, got %v", seen)
	}

	// 重复回调幂等
	if err := env.paymentSvc.Complete(context.Background(), order.InvcNum, true); err != nil {
		t.Fatalf("repeated completion must be a no-op: %v", err)
	}
}

func TestPaymentCompletionToleratesMissingOrder(t *testing.T) {
	env := setupOrderTest(t)
	if err := env.paymentSvc.Complete(context.Background(), "INV-NO-SUCH", true); err != nil {
		t.Fatalf("completion for unknown invoice must not error: %v", err)
	}
}

func TestVendorStatusRegressionRejected(t *testing.T) {
	env := setupOrderTest(t)
	customerID, vendorID := seedMarketplace(t, env)
	custToken := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)
	vendToken := testutil.GenerateTestToken(vendorID, "测试供应商", entity.RoleVendor)

	order := placeOrder(t, env, customerID, custToken, 1)
	if err := env.DB.Model(&entity.Order{}).Where("id = ?", order.ID).
		Update("status", entity.OrderStatusInTransit).Error; err != nil {
		t.Fatalf("seed status: %v", err)
	}

	w := testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order/vendor/orders/"+order.LeadID+"/status",
		map[string]interface{}{"status": entity.OrderStatusVendorAccepted}, vendToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("regression: expected 400, got %d: %s", w.Code, w.Body.String())
	}
	msg := testutil.ParseResponse(w)["message"].(string)
	if !strings.Contains(msg, entity.OrderStatusInTransit) {
		t.Fatalf("error must name current status, got: %s", msg)
	}
	if !strings.Contains(msg, entity.OrderStatusShipped) {
		t.Fatalf("error must name allowed statuses, got: %s", msg)
	}
}

func TestVendorAdvancesDeliveryPhaseMonotonically(t *testing.T) {
	env := setupOrderTest(t)
	customerID, vendorID := seedMarketplace(t, env)
	custToken := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)
	vendToken := testutil.GenerateTestToken(vendorID, "测试供应商", entity.RoleVendor)

	order := placeOrder(t, env, customerID, custToken, 1)

	// 未到 order_confirmed 之前供应商不能推进发货状态
	w := testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order/vendor/orders/"+order.LeadID+"/status",
		map[string]interface{}{"status": entity.OrderStatusTruckLoading}, vendToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("advance before confirmation: expected 400, got %d", w.Code)
	}

	if err := env.DB.Model(&entity.Order{}).Where("id = ?", order.ID).
		Update("status", entity.OrderStatusConfirmed).Error; err != nil {
		t.Fatalf("seed status: %v", err)
	}

	for _, target := range []string{
		entity.OrderStatusTruckLoading,
		entity.OrderStatusInTransit,
		entity.OrderStatusShipped,
		entity.OrderStatusOutForDelivery,
		entity.OrderStatusDelivered,
	} {
		w = testutil.DoRequest(env.Router, http.MethodPut,
			"/api/v1/order/vendor/orders/"+order.LeadID+"/status",
			map[string]interface{}{"status": target}, vendToken)
		if w.Code != http.StatusOK {
			t.Fatalf("advance to %s: expected 200, got %d: %s", target, w.Code, w.Body.String())
		}
	}

	// delivered 为终态
	w = testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order/vendor/orders/"+order.LeadID+"/status",
		map[string]interface{}{"status": entity.OrderStatusCancelled}, vendToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("delivered must be terminal, got %d", w.Code)
	}
}

func TestCustomerCancelRules(t *testing.T) {
	env := setupOrderTest(t)
	customerID, _ := seedMarketplace(t, env)
	custToken := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)

	order := placeOrder(t, env, customerID, custToken, 1)

	// pending 可取消
	w := testutil.DoRequest(env.Router, http.MethodDelete,
		"/api/v1/order/customer/orders/"+order.LeadID, nil, custToken)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel pending: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// payment_done 之后客户不能取消
	order2 := placeOrder(t, env, customerID, custToken, 2)
	if err := env.DB.Model(&entity.Order{}).Where("id = ?", order2.ID).
		Update("status", entity.OrderStatusPaymentDone).Error; err != nil {
		t.Fatalf("seed status: %v", err)
	}
	w = testutil.DoRequest(env.Router, http.MethodDelete,
		"/api/v1/order/customer/orders/"+order2.LeadID, nil, custToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("cancel after payment: expected 400, got %d", w.Code)
	}
}

func TestAdminOperations(t *testing.T) {
	env := setupOrderTest(t)
	customerID, vendorID := seedMarketplace(t, env)
	custToken := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)
	vendToken := testutil.GenerateTestToken(vendorID, "测试供应商", entity.RoleVendor)
	adminToken := testutil.AdminToken()

	order := placeOrder(t, env, customerID, custToken, 1)
	testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order/vendor/orders/"+order.LeadID+"/accept", nil, vendToken)

	// 人工确认收款 + 确认订单
	w := testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order/admin/orders/"+order.LeadID+"/confirm-payment", nil, adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm payment: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order/admin/orders/"+order.LeadID+"/confirm", nil, adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm order: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// 强制设置绕过边检查
	w = testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order/admin/orders/"+order.LeadID+"/status",
		map[string]interface{}{"status": entity.OrderStatusOutForDelivery, "remarks": "人工修正"}, adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("force status: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	// delivered 之后管理员也不能再动
	env.DB.Model(&entity.Order{}).Where("id = ?", order.ID).
		Update("status", entity.OrderStatusDelivered)
	w = testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order/admin/orders/"+order.LeadID+"/status",
		map[string]interface{}{"status": entity.OrderStatusPending}, adminToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("force from delivered: expected 400, got %d", w.Code)
	}
	w = testutil.DoRequest(env.Router, http.MethodPost,
		"/api/v1/order/admin/orders/"+order.LeadID+"/cancel", nil, adminToken)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("cancel delivered: expected 400, got %d", w.Code)
	}

	// 历史按时间倒序，最近一条与当前状态一致
	w = testutil.DoRequest(env.Router, http.MethodGet,
		"/api/v1/order/admin/orders/"+order.LeadID+"/history", nil, adminToken)
	if w.Code != http.StatusOK {
		t.Fatalf("history: expected 200, got %d", w.Code)
	}
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	if len(items) == 0 {
		t.Fatal("history must not be empty")
	}
}

func TestPlaceWithPromoLocksDiscount(t *testing.T) {
	env := setupOrderTest(t)
	customerID, _ := seedMarketplace(t, env)
	token := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)

	now := time.Now()
	promo := &entity.Promo{
		ID:                "promo-flow-001",
		PromoCode:         "PRM-FLOW-001",
		ItemCode:          "ITM-CEM-001",
		Discount:          10,
		DiscountType:      entity.DiscountTypePercentage,
		StartDate:         now.Add(-time.Hour),
		EndDate:           now.Add(time.Hour),
		MaxDiscountAmount: 40,
		Active:            true,
		CreatedBy:         "test-admin-001",
	}
	if err := env.DB.Create(promo).Error; err != nil {
		t.Fatalf("seed promo: %v", err)
	}

	w := testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/cart/add",
		map[string]interface{}{"item_code": "ITM-CEM-001", "qty": 10}, token)
	leadID := testutil.ParseResponse(w)["data"].(map[string]interface{})["lead_id"].(string)

	w = testutil.DoRequest(env.Router, http.MethodPost, "/api/v1/order/customer/orders/"+leadID+"/place",
		map[string]interface{}{
			"delivery_address": "测试地址1号",
			"pincode":          "560001",
			"promo_code":       "PRM-FLOW-001",
		}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("place with promo: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	// 10% of 1000 = 100，封顶 40
	if data["promo_discount"].(float64) != 40 {
		t.Fatalf("expected locked discount 40, got %v", data["promo_discount"])
	}
	if data["total_amount"].(float64) != 960 {
		t.Fatalf("expected total 960 after discount, got %v", data["total_amount"])
	}

	var reloaded entity.Promo
	if err := env.DB.Where("promo_code = ?", "PRM-FLOW-001").First(&reloaded).Error; err != nil {
		t.Fatalf("reload promo: %v", err)
	}
	if reloaded.UsedCount != 1 {
		t.Fatalf("expected used count 1, got %d", reloaded.UsedCount)
	}
}

func TestDeliveryTrackingSyncsOrderStatus(t *testing.T) {
	env := setupOrderTest(t)
	customerID, vendorID := seedMarketplace(t, env)
	custToken := testutil.GenerateTestToken(customerID, "测试客户", entity.RoleCustomer)
	vendToken := testutil.GenerateTestToken(vendorID, "测试供应商", entity.RoleVendor)

	order := placeOrder(t, env, customerID, custToken, 1)
	env.DB.Model(&entity.Order{}).Where("id = ?", order.ID).
		Update("status", entity.OrderStatusConfirmed)

	// 写入物流信息：配送记录置 in_transit，订单状态同步推进
	w := testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order/vendor/orders/"+order.LeadID+"/delivery",
		map[string]interface{}{"tracking_number": "TRK123", "courier": "顺丰"}, vendToken)
	if w.Code != http.StatusOK {
		t.Fatalf("tracking info: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["delivery_status"].(string) != entity.DeliveryStatusInTransit {
		t.Fatalf("expected in_transit delivery, got %v", data["delivery_status"])
	}
	reloaded, _ := env.repos.Order.GetByLeadID(context.Background(), order.LeadID)
	if reloaded.Status != entity.OrderStatusInTransit {
		t.Fatalf("order status should advance to in_transit, got %s", reloaded.Status)
	}

	// 标记送达：记录实际送达时间，订单状态置 delivered
	w = testutil.DoRequest(env.Router, http.MethodPut,
		"/api/v1/order/vendor/orders/"+order.LeadID+"/delivery",
		map[string]interface{}{"delivery_status": entity.DeliveryStatusDelivered}, vendToken)
	if w.Code != http.StatusOK {
		t.Fatalf("mark delivered: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	data = testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["delivery_actual_at"] == nil {
		t.Fatal("delivered must stamp actual date")
	}
	reloaded, _ = env.repos.Order.GetByLeadID(context.Background(), order.LeadID)
	if reloaded.Status != entity.OrderStatusDelivered {
		t.Fatalf("order status should be delivered, got %s", reloaded.Status)
	}
}
