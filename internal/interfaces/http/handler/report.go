package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	catalogapp "github.com/storefront/backend/internal/application/catalog"
	reportapp "github.com/storefront/backend/internal/application/report"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// ReportHandler serves catalog exports
type ReportHandler struct {
	BaseHandler
	reportService *reportapp.ReportService
	jwtService    *auth.JWTService
	logger        *zap.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *reportapp.ReportService, jwtService *auth.JWTService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		jwtService:    jwtService,
		logger:        logger,
	}
}

// ExportCSV streams the catalog as a CSV download
func (h *ReportHandler) ExportCSV(c *gin.Context) {
	var filter catalogapp.ProductListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid filter parameters")
		return
	}

	filename := fmt.Sprintf("catalog-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)

	if err := h.reportService.ExportCSV(c.Request.Context(), filter, c.Writer); err != nil {
		// Headers are already sent; all we can do is log and cut the stream
		if h.logger != nil {
			h.logger.Error("CSV export failed mid-stream", zap.Error(err))
		}
		c.Abort()
	}
}

// ExportPDF renders the catalog as a PDF download
func (h *ReportHandler) ExportPDF(c *gin.Context) {
	var filter catalogapp.ProductListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, "Invalid filter parameters")
		return
	}

	pdf, err := h.reportService.ExportPDF(c.Request.Context(), filter, c.Query("title"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("catalog-%s.pdf", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// RegisterRoutes registers the admin-only export routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/admin/reports")
	reports.Use(middleware.JWTAuth(h.jwtService, h.logger), middleware.RequireAdmin())
	{
		reports.GET("/catalog.csv", h.ExportCSV)
		reports.GET("/catalog.pdf", h.ExportPDF)
	}
}
