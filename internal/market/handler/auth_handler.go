package handler

import (
	"github.com/bitfantasy/buildmart/internal/config"
	"github.com/bitfantasy/buildmart/internal/market/repository"
	"github.com/bitfantasy/buildmart/internal/market/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler 注册登录与 OTP
type AuthHandler struct {
	svc *service.AuthService
	cfg *config.Config
}

func NewAuthHandler(svc *service.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{svc: svc, cfg: cfg}
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req service.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, err := h.svc.Signup(c.Request.Context(), req)
	if err != nil {
		BadRequest(c, "注册失败: "+err.Error())
		return
	}
	Created(c, user)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, tokens, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		Unauthorized(c, err.Error())
		return
	}
	Success(c, gin.H{
		"user":          user,
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	tokens, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		Unauthorized(c, err.Error())
		return
	}
	Success(c, tokens)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		InternalError(c, "登出失败: "+err.Error())
		return
	}
	Success(c, nil)
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		RespondError(c, err, "获取用户失败")
		return
	}
	Success(c, user)
}

// ListUsers 后台用户列表
func (h *AuthHandler) ListUsers(c *gin.Context) {
	page, pageSize := GetPagination(c)
	users, total, err := h.svc.ListUsers(c.Request.Context(), repository.UserListParams{
		Role:    c.Query("role"),
		Status:  c.Query("status"),
		Keyword: c.Query("keyword"),
		Page:    page,
		Size:    pageSize,
	})
	if err != nil {
		InternalError(c, "查询用户列表失败: "+err.Error())
		return
	}
	Success(c, listResponse(users, page, pageSize, total))
}

type userStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetUserStatus 启用/禁用用户
func (h *AuthHandler) SetUserStatus(c *gin.Context) {
	var req userStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	user, err := h.svc.SetUserStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		RespondError(c, err, "更新用户状态失败")
		return
	}
	Success(c, user)
}

type otpGenerateRequest struct {
	Mobile string `json:"mobile" binding:"required"`
}

func (h *AuthHandler) GenerateOTP(c *gin.Context) {
	var req otpGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.GenerateOTP(c.Request.Context(), req.Mobile); err != nil {
		RespondError(c, err, "验证码发送失败")
		return
	}
	Success(c, nil)
}

type otpVerifyRequest struct {
	Mobile string `json:"mobile" binding:"required"`
	Code   string `json:"code" binding:"required,len=6"`
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req otpVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.VerifyOTP(c.Request.Context(), req.Mobile, req.Code); err != nil {
		BadRequest(c, "验证失败: "+err.Error())
		return
	}
	Success(c, nil)
}
