package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/saclworks/trialflow/internal/qc/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login 用户名密码登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			Unauthorized(c, "用户名或密码错误")
		case errors.Is(err, service.ErrUserInactive):
			Forbidden(c, "用户已停用")
		default:
			InternalError(c, "登录失败: "+err.Error())
		}
		return
	}
	Success(c, result)
}

// Refresh 刷新令牌
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRefreshToken):
			Unauthorized(c, "刷新令牌无效")
		case errors.Is(err, service.ErrUserInactive):
			Forbidden(c, "用户已停用")
		default:
			InternalError(c, "刷新令牌失败: "+err.Error())
		}
		return
	}
	Success(c, pair)
}

// Logout 登出并撤销刷新令牌
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
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

// RequestPasswordReset 申请密码重置验证码
// POST /api/v1/auth/password/forgot
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := h.svc.RequestPasswordReset(c.Request.Context(), req.Username); err != nil {
		InternalError(c, "发送验证码失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// ResetPassword 用验证码重置密码
// POST /api/v1/auth/password/reset
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req struct {
		Username    string `json:"username" binding:"required"`
		OTP         string `json:"otp" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), req.Username, req.OTP, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidOTP) {
			BadRequest(c, "验证码错误或已过期")
			return
		}
		InternalError(c, "重置密码失败: "+err.Error())
		return
	}
	Success(c, nil)
}

// ChangePassword 已登录用户修改密码
// POST /api/v1/auth/password/change
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	actor := GetActor(c)
	if err := h.svc.ChangePassword(c.Request.Context(), actor.Username, req.OldPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			BadRequest(c, "原密码错误")
			return
		}
		InternalError(c, "修改密码失败: "+err.Error())
		return
	}
	Success(c, nil)
}
