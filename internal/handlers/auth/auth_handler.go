package auth

import (
	"net/http"

	"fieldserve-service/internal/domain/auth"
	"fieldserve-service/internal/middleware"
	"fieldserve-service/internal/pkg/response"
	service "fieldserve-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login authenticates a dashboard user and returns a bearer token
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, "login failed", err)
		return
	}

	response.Success(c, http.StatusOK, "login successful", result)
}

// Logout revokes the current session
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := middleware.MustGetUserID(c)
	jti := middleware.MustGetJTI(c)

	if err := h.authService.Logout(c.Request.Context(), userID, jti); err != nil {
		h.logger.Warn("logout failed", zap.Int64("user_id", userID), zap.Error(err))
	}

	response.Success(c, http.StatusOK, "logged out", nil)
}

// GetMe returns the authenticated user's profile
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID := middleware.MustGetUserID(c)

	user, err := h.authService.GetUser(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, "user not found", err)
		return
	}

	response.Success(c, http.StatusOK, "profile retrieved", user)
}

// Register creates a new user in the caller's company. Admin only.
func (h *AuthHandler) Register(c *gin.Context) {
	companyID := middleware.MustGetCompanyID(c)

	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), companyID, &req)
	if err != nil {
		response.FromError(c, "failed to register user", err)
		return
	}

	response.Success(c, http.StatusCreated, "user registered", user)
}
