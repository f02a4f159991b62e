package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "spendcycle/internal/errors"
	"spendcycle/internal/services"
)

// ReportHandler serves spending reports.
type ReportHandler struct {
	reportService services.ReportServicer
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService services.ReportServicer) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GetCategoryReport handles the per-category spending summary.
// @Summary     Category spending report
// @Description Totals per category in the window, largest first, with budget progress where a budget exists
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       from query string false "Window start (RFC3339 or YYYY-MM-DD)"
// @Param       to   query string false "Window end (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} services.CategoryReport "Category report"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/categories [get]
func (h *ReportHandler) GetCategoryReport(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	from, err := parseOptionalTimeQuery(c, "from")
	if err != nil {
		respondWithError(c, err)
		return
	}
	to, err := parseOptionalTimeQuery(c, "to")
	if err != nil {
		respondWithError(c, err)
		return
	}

	report, err := h.reportService.GetCategoryReport(userID, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"report": report})
}

// GetCategoryStats handles the statistics for a single category.
// @Summary     Category statistics
// @Description Count, sum, average, minimum and maximum for one category in the window
// @Tags        reports
// @Produce     json
// @Security    BearerAuth
// @Param       category path  string true  "Category"
// @Param       from     query string false "Window start (RFC3339 or YYYY-MM-DD)"
// @Param       to       query string false "Window end (RFC3339 or YYYY-MM-DD)"
// @Success     200 {object} services.CategoryStats "Category statistics"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /reports/categories/{category} [get]
func (h *ReportHandler) GetCategoryStats(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	category := strings.TrimSpace(c.Param("category"))
	if category == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required"))
		return
	}

	from, err := parseOptionalTimeQuery(c, "from")
	if err != nil {
		respondWithError(c, err)
		return
	}
	to, err := parseOptionalTimeQuery(c, "to")
	if err != nil {
		respondWithError(c, err)
		return
	}

	stats, err := h.reportService.GetCategoryStats(userID, category, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
