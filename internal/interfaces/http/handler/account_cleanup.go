package handler

import (
	"github.com/gin-gonic/gin"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// AccountCleanupHandler exposes the inactive-account cleanup to admins
type AccountCleanupHandler struct {
	BaseHandler
	cleanupService *identityapp.CleanupService
	jwtService     *auth.JWTService
	logger         *zap.Logger
}

// NewAccountCleanupHandler creates a new cleanup handler
func NewAccountCleanupHandler(cleanupService *identityapp.CleanupService, jwtService *auth.JWTService, logger *zap.Logger) *AccountCleanupHandler {
	return &AccountCleanupHandler{
		cleanupService: cleanupService,
		jwtService:     jwtService,
		logger:         logger,
	}
}

// Preview lists the accounts a cleanup run would deactivate
func (h *AccountCleanupHandler) Preview(c *gin.Context) {
	preview, err := h.cleanupService.Preview(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// Run executes the cleanup immediately
func (h *AccountCleanupHandler) Run(c *gin.Context) {
	result, err := h.cleanupService.Run(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes registers the admin-only cleanup routes
func (h *AccountCleanupHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cleanup := rg.Group("/admin/accounts/cleanup")
	cleanup.Use(middleware.JWTAuth(h.jwtService, h.logger), middleware.RequireAdmin())
	{
		cleanup.GET("", h.Preview)
		cleanup.POST("", h.Run)
	}
}
