package handler

import (
	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/bitfantasy/buildmart/internal/middleware"
	"github.com/gin-gonic/gin"
)

// VendorHandler 供应商侧订单操作
type VendorHandler struct {
	svc *service.OrderService
}

func NewVendorHandler(svc *service.OrderService) *VendorHandler {
	return &VendorHandler{svc: svc}
}

func (h *VendorHandler) ListOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.OrderListParams{
		VendorID:   GetUserID(c),
		Status:     c.Query("status"),
		PlacedOnly: true,
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

func (h *VendorHandler) ListPendingOrders(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.OrderListParams{
		VendorID:   GetUserID(c),
		Status:     entity.OrderStatusPending,
		PlacedOnly: true,
		ActiveOnly: true,
		Page:       page,
		Size:       pageSize,
	}
	orders, total, err := h.svc.ListOrders(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取待接订单失败: "+err.Error())
		return
	}
	Success(c, listResponse(orders, page, pageSize, total))
}

func (h *VendorHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), GetUserID(c))
	if err != nil {
		InternalError(c, "获取订单统计失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": stats})
}

type remarksBody struct {
	Remarks string `json:"remarks"`
}

func (h *VendorHandler) Accept(c *gin.Context) {
	var body remarksBody
	c.ShouldBindJSON(&body)
	order, err := h.svc.VendorAccept(c.Request.Context(), c.Param("leadId"), GetUserID(c), body.Remarks)
	if err != nil {
		middleware.RecordOrderOperation("vendor_accept", false)
		RespondError(c, err, "接单失败")
		return
	}
	middleware.RecordOrderOperation("vendor_accept", true)
	Success(c, order)
}

func (h *VendorHandler) Reject(c *gin.Context) {
	var body remarksBody
	c.ShouldBindJSON(&body)
	order, err := h.svc.VendorReject(c.Request.Context(), c.Param("leadId"), GetUserID(c), body.Remarks)
	if err != nil {
		middleware.RecordOrderOperation("vendor_reject", false)
		RespondError(c, err, "拒单失败")
		return
	}
	middleware.RecordOrderOperation("vendor_reject", true)
	Success(c, order)
}

type updateStatusBody struct {
	Status  string `json:"status" binding:"required"`
	Remarks string `json:"remarks"`
}

func (h *VendorHandler) UpdateStatus(c *gin.Context) {
	var body updateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	order, err := h.svc.VendorAdvanceStatus(c.Request.Context(), c.Param("leadId"), GetUserID(c), body.Status, body.Remarks)
	if err != nil {
		middleware.RecordOrderOperation("vendor_advance", false)
		RespondError(c, err, "状态更新失败")
		return
	}
	middleware.RecordOrderOperation("vendor_advance", true)
	Success(c, order)
}

type deliveryBody struct {
	TrackingNumber string `json:"tracking_number"`
	Courier        string `json:"courier"`
	TrackingURL    string `json:"tracking_url"`
	DeliveryStatus string `json:"delivery_status"`
	Notes          string `json:"notes"`
}

// UpdateDelivery 带物流单号则写入跟踪信息，带配送状态则更新配送状态，二选一
func (h *VendorHandler) UpdateDelivery(c *gin.Context) {
	var body deliveryBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	switch {
	case body.TrackingNumber != "" && body.Courier != "":
		delivery, err := h.svc.AddTrackingInfo(c.Request.Context(), c.Param("leadId"), GetUserID(c),
			service.TrackingInfoRequest{
				TrackingNumber: body.TrackingNumber,
				Courier:        body.Courier,
				TrackingURL:    body.TrackingURL,
			})
		if err != nil {
			RespondError(c, err, "写入物流信息失败")
			return
		}
		Success(c, delivery)
	case body.DeliveryStatus != "":
		delivery, err := h.svc.UpdateDeliveryStatus(c.Request.Context(), c.Param("leadId"), GetUserID(c),
			service.UpdateDeliveryStatusRequest{
				DeliveryStatus: body.DeliveryStatus,
				Notes:          body.Notes,
			})
		if err != nil {
			RespondError(c, err, "更新配送状态失败")
			return
		}
		Success(c, delivery)
	default:
		BadRequest(c, "参数错误: 需要物流单号或配送状态")
	}
}
