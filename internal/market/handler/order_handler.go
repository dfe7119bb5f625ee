package handler

import (
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/bitfantasy/buildmart/internal/middleware"
	"github.com/gin-gonic/gin"
)

// OrderHandler 客户侧订单与支付
type OrderHandler struct {
	svc     *service.OrderService
	payment *service.PaymentService
}

func NewOrderHandler(svc *service.OrderService, payment *service.PaymentService) *OrderHandler {
	return &OrderHandler{svc: svc, payment: payment}
}

func (h *OrderHandler) AddToCart(c *gin.Context) {
	var req service.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	order, err := h.svc.AddToCart(c.Request.Context(), GetUserID(c), req)
	if err != nil {
		middleware.RecordOrderOperation("add_to_cart", false)
		RespondError(c, err, "加购失败")
		return
	}
	middleware.RecordOrderOperation("add_to_cart", true)
	Success(c, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.OrderListParams{
		CustomerID: GetUserID(c),
		Status:     c.Query("status"),
		ActiveOnly: true,
		Page:       page,
		Size:       pageSize,
	}
	orders, total, err := h.svc.ListOrders(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(orders, page, pageSize, total))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.svc.GetCustomerOrder(c.Request.Context(), c.Param("leadId"), GetUserID(c))
	if err != nil {
		RespondError(c, err, "获取订单失败")
		return
	}
	Success(c, order)
}

func (h *OrderHandler) UpdateDeliveryInfo(c *gin.Context) {
	var req service.UpdateDeliveryInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	order, err := h.svc.UpdateDeliveryInfo(c.Request.Context(), c.Param("leadId"), GetUserID(c), req)
	if err != nil {
		RespondError(c, err, "更新收货信息失败")
		return
	}
	Success(c, order)
}

func (h *OrderHandler) RemoveItem(c *gin.Context) {
	order, err := h.svc.RemoveItem(c.Request.Context(), c.Param("leadId"), GetUserID(c), c.Param("itemCode"))
	if err != nil {
		RespondError(c, err, "移除商品失败")
		return
	}
	Success(c, order)
}

func (h *OrderHandler) Place(c *gin.Context) {
	var req service.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	order, err := h.svc.Place(c.Request.Context(), c.Param("leadId"), GetUserID(c), req)
	if err != nil {
		middleware.RecordOrderOperation("place", false)
		RespondError(c, err, "提交订单失败")
		return
	}
	middleware.RecordOrderOperation("place", true)
	Success(c, order)
}

type cancelRequest struct {
	Remarks string `json:"remarks"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	var req cancelRequest
	c.ShouldBindJSON(&req) // remarks 可选，body 可以为空
	order, err := h.svc.CancelByCustomer(c.Request.Context(), c.Param("leadId"), GetUserID(c), req.Remarks)
	if err != nil {
		middleware.RecordOrderOperation("customer_cancel", false)
		RespondError(c, err, "取消订单失败")
		return
	}
	middleware.RecordOrderOperation("customer_cancel", true)
	Success(c, order)
}

// --- 支付 ---

type initiatePaymentBody struct {
	Method string `json:"method"`
}

func (h *OrderHandler) InitiatePayment(c *gin.Context) {
	var body initiatePaymentBody
	c.ShouldBindJSON(&body)
	payment, err := h.payment.Initiate(c.Request.Context(), GetUserID(c), service.InitiatePaymentRequest{
		LeadID: c.Param("leadId"),
		Method: body.Method,
	})
	if err != nil {
		middleware.RecordOrderOperation("initiate_payment", false)
		RespondError(c, err, "发起支付失败")
		return
	}
	middleware.RecordOrderOperation("initiate_payment", true)
	Success(c, payment)
}

func (h *OrderHandler) GetPaymentStatus(c *gin.Context) {
	payment, err := h.payment.GetStatus(c.Request.Context(), c.Param("invcNum"), GetUserID(c))
	if err != nil {
		RespondError(c, err, "查询支付状态失败")
		return
	}
	Success(c, payment)
}
