package handler

import (
	"strings"

	"github.com/gin-gonic/gin"
	identityapp "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles registration, login and session endpoints
type AuthHandler struct {
	BaseHandler
	authService  *identityapp.AuthService
	sessionStore *middleware.SessionStore
	rateLimiter  *middleware.RateLimiter
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identityapp.AuthService, sessionStore *middleware.SessionStore, rateLimiter *middleware.RateLimiter) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		sessionStore: sessionStore,
		rateLimiter:  rateLimiter,
	}
}

// Register creates a new account (or reclaims an expired one) and
// opens a session
func (h *AuthHandler) Register(c *gin.Context) {
	var req identityapp.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.sessionStore.Save(c, result.Token)
	h.Created(c, result)
}

// Login authenticates and opens a session
func (h *AuthHandler) Login(c *gin.Context) {
	var req identityapp.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.sessionStore.Save(c, result.Token)
	h.Success(c, result)
}

// Logout clears the session cookie. Tokens are stateless, so the
// server keeps no revocation list; the cookie removal ends the session
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessionStore.Clear(c)
	h.NoContent(c)
}

// Verify reports whether the presented token is valid and who it
// belongs to
func (h *AuthHandler) Verify(c *gin.Context) {
	token := h.sessionToken(c)
	if token == "" {
		h.Unauthorized(c, "No session token presented")
		return
	}

	info, err := h.authService.Verify(c.Request.Context(), token)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, info)
}

// Refresh exchanges the presented token for a fresh one
func (h *AuthHandler) Refresh(c *gin.Context) {
	token := h.sessionToken(c)
	if token == "" {
		h.Unauthorized(c, "No session token presented")
		return
	}

	result, err := h.authService.Refresh(c.Request.Context(), token)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.sessionStore.Save(c, result.Token)
	h.Success(c, result)
}

// sessionToken reads the token from the cookie or the bearer header
func (h *AuthHandler) sessionToken(c *gin.Context) string {
	if h.sessionStore != nil {
		if token := h.sessionStore.Load(c); token != "" {
			return token
		}
	}
	header := c.GetHeader(middleware.AuthHeaderKey)
	if strings.HasPrefix(header, middleware.BearerPrefix) {
		return strings.TrimPrefix(header, middleware.BearerPrefix)
	}
	return ""
}

// RegisterRoutes registers auth routes. The rate limiter guards the
// credential-accepting endpoints
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		limited := authGroup.Group("")
		if h.rateLimiter != nil {
			limited.Use(middleware.RateLimit(h.rateLimiter))
		}
		limited.POST("/register", h.Register)
		limited.POST("/login", h.Login)

		authGroup.POST("/logout", h.Logout)
		authGroup.GET("/verify", h.Verify)
		authGroup.POST("/refresh", h.Refresh)
	}
}
