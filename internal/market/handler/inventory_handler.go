package handler

import (
	"strconv"

	"github.com/bitfantasy/buildmart/internal/market/entity"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/gin-gonic/gin"
)

// InventoryHandler 商品、定价、运费表与促销
type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func (h *InventoryHandler) CreateItem(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.CreateItem(c.Request.Context(), req, GetUserID(c), GetUserRole(c))
	if err != nil {
		RespondError(c, err, "创建商品失败")
		return
	}
	Created(c, item)
}

func (h *InventoryHandler) GetItem(c *gin.Context) {
	item, err := h.svc.GetItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, err, "获取商品失败")
		return
	}
	Success(c, item)
}

func (h *InventoryHandler) ListItems(c *gin.Context) {
	page, pageSize := GetPagination(c)
	params := repository.ItemListParams{
		Category:    c.Query("category"),
		Subcategory: c.Query("subcategory"),
		Keyword:     c.Query("keyword"),
		ActiveOnly:  c.Query("include_inactive") != "true",
		Page:        page,
		Size:        pageSize,
	}
	// vendor 只能看自己的商品
	if GetUserRole(c) == entity.RoleVendor {
		params.VendorID = GetUserID(c)
	} else {
		params.VendorID = c.Query("vendor_id")
	}
	items, total, err := h.svc.ListItems(c.Request.Context(), params)
	if err != nil {
		InternalError(c, "获取商品列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(items, page, pageSize, total))
}

func (h *InventoryHandler) UpdateItem(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	item, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), req, GetUserID(c), GetUserRole(c))
	if err != nil {
		RespondError(c, err, "更新商品失败")
		return
	}
	Success(c, item)
}

func (h *InventoryHandler) DeleteItem(c *gin.Context) {
	if err := h.svc.DeleteItem(c.Request.Context(), c.Param("id"), GetUserID(c), GetUserRole(c)); err != nil {
		RespondError(c, err, "删除商品失败")
		return
	}
	Success(c, nil)
}

func (h *InventoryHandler) UploadItemImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		BadRequest(c, "缺少图片文件: "+err.Error())
		return
	}
	src, err := file.Open()
	if err != nil {
		BadRequest(c, "读取图片失败: "+err.Error())
		return
	}
	defer src.Close()

	item, err := h.svc.UploadItemImage(c.Request.Context(), c.Param("id"),
		file.Filename, src, file.Size, file.Header.Get("Content-Type"),
		GetUserID(c), GetUserRole(c))
	if err != nil {
		RespondError(c, err, "上传图片失败")
		return
	}
	Success(c, item)
}

func (h *InventoryHandler) Categories(c *gin.Context) {
	Success(c, entity.Categories())
}

// --- 定价 ---

func (h *InventoryHandler) SetPrice(c *gin.Context) {
	var req service.SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	price, err := h.svc.SetPrice(c.Request.Context(), req, GetUserID(c), GetUserRole(c))
	if err != nil {
		RespondError(c, err, "保存定价失败")
		return
	}
	Success(c, price)
}

func (h *InventoryHandler) GetPrice(c *gin.Context) {
	price, err := h.svc.GetPrice(c.Request.Context(), c.Param("itemCode"))
	if err != nil {
		RespondError(c, err, "获取定价失败")
		return
	}
	Success(c, price)
}

// --- 运费 ---

func (h *InventoryHandler) SetShippingTable(c *gin.Context) {
	var req service.SetShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	table, err := h.svc.SetShippingTable(c.Request.Context(), req, GetUserID(c), GetUserRole(c))
	if err != nil {
		RespondError(c, err, "保存运费表失败")
		return
	}
	Success(c, table)
}

func (h *InventoryHandler) CalculateShipping(c *gin.Context) {
	itemCode := c.Query("item_code")
	orderValue, err := strconv.ParseFloat(c.Query("order_value"), 64)
	if itemCode == "" || err != nil || orderValue < 0 {
		BadRequest(c, "参数错误: 需要 item_code 和非负 order_value")
		return
	}
	fee, err := h.svc.CalculateShipping(c.Request.Context(), itemCode, orderValue)
	if err != nil {
		RespondError(c, err, "运费计算失败")
		return
	}
	Success(c, gin.H{"item_code": itemCode, "order_value": orderValue, "shipping_fee": fee})
}

// --- 促销 ---

func (h *InventoryHandler) CreatePromo(c *gin.Context) {
	var req service.CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	promo, err := h.svc.CreatePromo(c.Request.Context(), req, GetUserID(c), GetUserRole(c))
	if err != nil {
		RespondError(c, err, "创建促销失败")
		return
	}
	Created(c, promo)
}

type calculatePromoRequest struct {
	PromoCode  string  `json:"promo_code" binding:"required"`
	OrderValue float64 `json:"order_value" binding:"required,gt=0"`
}

func (h *InventoryHandler) CalculatePromo(c *gin.Context) {
	var req calculatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	quote, err := h.svc.CalculatePromo(c.Request.Context(), req.PromoCode, req.OrderValue)
	if err != nil {
		RespondError(c, err, "折扣计算失败")
		return
	}
	Success(c, quote)
}
