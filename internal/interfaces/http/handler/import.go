package handler

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// maxImportSize caps bulk import uploads at 20MB
const maxImportSize = 20 << 20

// ImportHandler handles bulk product imports
type ImportHandler struct {
	BaseHandler
	importService *catalogapp.ImportService
	jwtService    *auth.JWTService
	logger        *zap.Logger
}

// NewImportHandler creates a new import handler
func NewImportHandler(importService *catalogapp.ImportService, jwtService *auth.JWTService, logger *zap.Logger) *ImportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportHandler{
		importService: importService,
		jwtService:    jwtService,
		logger:        logger,
	}
}

// ImportJSON imports products from a JSON array request body
func (h *ImportHandler) ImportJSON(c *gin.Context) {
	result, err := h.importService.ImportJSON(c.Request.Context(), c.Request.Body)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.logger.Info("Product JSON import finished",
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed))

	h.Success(c, result)
}

// ImportCSV imports products from an uploaded CSV file
func (h *ImportHandler) ImportCSV(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "A CSV file is required in the 'file' form field")
		return
	}
	if fileHeader.Size > maxImportSize {
		h.BadRequest(c, "Import file exceeds the 20MB limit")
		return
	}
	if !isCSVUpload(fileHeader) {
		h.BadRequest(c, "Only .csv files are accepted")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.InternalError(c, "Failed to read uploaded file")
		return
	}
	defer file.Close()

	result, err := h.importService.ImportCSV(c.Request.Context(), file)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	h.logger.Info("Product CSV import finished",
		zap.String("filename", fileHeader.Filename),
		zap.Int("total", result.Total),
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed))

	h.Success(c, result)
}

func isCSVUpload(fh *multipart.FileHeader) bool {
	return strings.EqualFold(filepath.Ext(fh.Filename), ".csv")
}

// RegisterRoutes registers the admin-only import routes
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/admin/products/import")
	imports.Use(middleware.JWTAuth(h.jwtService, h.logger), middleware.RequireAdmin())
	{
		imports.POST("/json", h.ImportJSON)
		imports.POST("/csv", h.ImportCSV)
	}
}
