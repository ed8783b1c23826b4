package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// UploadHandler handles product image uploads
type UploadHandler struct {
	BaseHandler
	imageService *catalogapp.ImageService
	jwtService   *auth.JWTService
	logger       *zap.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(imageService *catalogapp.ImageService, jwtService *auth.JWTService, logger *zap.Logger) *UploadHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadHandler{
		imageService: imageService,
		jwtService:   jwtService,
		logger:       logger,
	}
}

// Upload stores one product image from a multipart form
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		h.BadRequest(c, "An image file is required in the 'image' form field")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.InternalError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	result, err := h.imageService.Upload(c.Request.Context(), fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("Product image uploaded",
		zap.String("key", result.Key),
		zap.Int64("size", fileHeader.Size))

	h.Created(c, result)
}

// deleteImageRequest identifies a stored image by its key
type deleteImageRequest struct {
	Key string `json:"key" binding:"required"`
}

// Delete removes a stored product image
func (h *UploadHandler) Delete(c *gin.Context) {
	var req deleteImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "An image key is required")
		return
	}

	if err := h.imageService.Delete(c.Request.Context(), req.Key); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers the admin-only image routes
func (h *UploadHandler) RegisterRoutes(rg *gin.RouterGroup) {
	images := rg.Group("/admin/products/images")
	images.Use(middleware.JWTAuth(h.jwtService, h.logger), middleware.RequireAdmin())
	{
		images.POST("", h.Upload)
		images.DELETE("", h.Delete)
	}
}
