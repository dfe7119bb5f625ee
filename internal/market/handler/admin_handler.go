package handler

import (
	"fmt"
	"time"

	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/bitfantasy/buildmart/internal/middleware"
	"github.com/gin-gonic/gin"
)

// AdminHandler 管理侧订单操作
type AdminHandler struct {
	svc *service.OrderService
}

func NewAdminHandler(svc *service.OrderService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) adminListParams(c *gin.Context) (repository.OrderListParams, int, int) {
	page, pageSize := GetPagination(c)
	return repository.OrderListParams{
		CustomerID: c.Query("customer_id"),
		VendorID:   c.Query("vendor_id"),
		Status:     c.Query("status"),
		PlacedOnly: c.Query("include_carts") != "true",
		Page:       page,
		Size:       pageSize,
	}, page, pageSize
}

func (h *AdminHandler) ListOrders(c *gin.Context) {
	params, page, pageSize := h.adminListParams(c)
	orders, total, err := h.svc.ListOrders(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(orders, page, pageSize, total))
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context(), c.Query("vendor_id"))
	if err != nil {
		InternalError(c, "获取订单统计失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": stats})
}

func parseDateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		return nil, nil, fmt.Errorf("无效的起始日期: %s", c.Query("from"))
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		return nil, nil, fmt.Errorf("无效的结束日期: %s", c.Query("to"))
	}
	// 结束日期含当天
	to = to.Add(24*time.Hour - time.Nanosecond)
	return &from, &to, nil
}

func (h *AdminHandler) ListByDateRange(c *gin.Context) {
	from, to, err := parseDateRange(c)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	params, page, pageSize := h.adminListParams(c)
	params.PlacedOnly = true
	params.DateFrom = from
	params.DateTo = to
	orders, total, err := h.svc.ListOrders(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取订单列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(orders, page, pageSize, total))
}

func (h *AdminHandler) ExportOrders(c *gin.Context) {
	params, _, _ := h.adminListParams(c)
	if c.Query("from") != "" || c.Query("to") != "" {
		from, to, err := parseDateRange(c)
		if err != nil {
			BadRequest(c, err.Error())
			return
		}
		params.DateFrom = from
		params.DateTo = to
	}

	f, err := h.svc.ExportOrders(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "订单导出失败: "+err.Error())
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("orders_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写出导出文件失败: "+err.Error())
	}
}

func (h *AdminHandler) Cancel(c *gin.Context) {
	var body remarksBody
	c.ShouldBindJSON(&body)
	order, err := h.svc.CancelByAdmin(c.Request.Context(), c.Param("leadId"), GetUserID(c), body.Remarks)
	if err != nil {
		middleware.RecordOrderOperation("admin_cancel", false)
		RespondError(c, err, "取消订单失败")
		return
	}
	middleware.RecordOrderOperation("admin_cancel", true)
	Success(c, order)
}

func (h *AdminHandler) ConfirmPayment(c *gin.Context) {
	var body remarksBody
	c.ShouldBindJSON(&body)
	order, err := h.svc.ConfirmPayment(c.Request.Context(), c.Param("leadId"), GetUserID(c), body.Remarks)
	if err != nil {
		middleware.RecordOrderOperation("confirm_payment", false)
		RespondError(c, err, "确认收款失败")
		return
	}
	middleware.RecordOrderOperation("confirm_payment", true)
	Success(c, order)
}

func (h *AdminHandler) ConfirmOrder(c *gin.Context) {
	var body remarksBody
	c.ShouldBindJSON(&body)
	order, err := h.svc.ConfirmOrder(c.Request.Context(), c.Param("leadId"), GetUserID(c), body.Remarks)
	if err != nil {
		middleware.RecordOrderOperation("confirm_order", false)
		RespondError(c, err, "确认订单失败")
		return
	}
	middleware.RecordOrderOperation("confirm_order", true)
	Success(c, order)
}

func (h *AdminHandler) ForceSetStatus(c *gin.Context) {
	var body updateStatusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	order, err := h.svc.ForceSetStatus(c.Request.Context(), c.Param("leadId"), body.Status, GetUserID(c), body.Remarks)
	if err != nil {
		middleware.RecordOrderOperation("force_status", false)
		RespondError(c, err, "设置状态失败")
		return
	}
	middleware.RecordOrderOperation("force_status", true)
	Success(c, order)
}

func (h *AdminHandler) History(c *gin.Context) {
	events, err := h.svc.History(c.Request.Context(), c.Param("leadId"))
	if err != nil {
		InternalError(c, "获取状态历史失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": events})
}
