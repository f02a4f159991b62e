package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "spendcycle/internal/errors"
	"spendcycle/internal/models"
	"spendcycle/internal/pagination"
	"spendcycle/internal/services"
)

// RecurringHandler handles recurring template requests and manual passes.
type RecurringHandler struct {
	recurringService services.RecurringServicer
	auditService     services.AuditServicer
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringService services.RecurringServicer, auditService services.AuditServicer) *RecurringHandler {
	return &RecurringHandler{recurringService: recurringService, auditService: auditService}
}

// CreateTemplateRequest represents the request payload for creating a recurring template.
type CreateTemplateRequest struct {
	Category    string           `json:"category" binding:"required,min=1,max=100"`
	Description string           `json:"description" binding:"required,min=1,max=500"`
	Amount      decimal.Decimal  `json:"amount" binding:"decimal_positive" swaggertype:"string" example:"15.99"`
	Frequency   models.Frequency `json:"frequency" binding:"required,frequency" example:"MONTHLY"`
	StartAt     string           `json:"start_at" binding:"required" example:"2025-01-31"`
	EndAt       *string          `json:"end_at" example:"2025-12-31"`
}

// UpdateTemplateRequest represents the request payload for updating a recurring
// template. The schedule position is not changed; clear_end_at removes the end date.
type UpdateTemplateRequest struct {
	Category    *string           `json:"category" binding:"omitempty,min=1,max=100"`
	Description *string           `json:"description" binding:"omitempty,min=1,max=500"`
	Amount      *decimal.Decimal  `json:"amount" binding:"omitempty,decimal_positive" swaggertype:"string"`
	Frequency   *models.Frequency `json:"frequency" binding:"omitempty,frequency"`
	EndAt       *string           `json:"end_at"`
	ClearEndAt  bool              `json:"clear_end_at"`
}

// CreateTemplate handles the creation of a recurring template.
// @Summary     Create a recurring template
// @Description Create a template that produces a transaction every period starting at start_at
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTemplateRequest true "Template details"
// @Success     201 {object} models.RecurringTemplate "Template created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [post]
func (h *RecurringHandler) CreateTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	startAt, err := parseFlexibleTime(req.StartAt)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "start_at: "+err.Error()))
		return
	}
	var endAt *time.Time
	if req.EndAt != nil && strings.TrimSpace(*req.EndAt) != "" {
		parsed, parseErr := parseFlexibleTime(*req.EndAt)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_at: "+parseErr.Error()))
			return
		}
		endAt = &parsed
	}

	template, err := h.recurringService.CreateTemplate(
		userID, req.Category, req.Description, req.Amount, req.Frequency, startAt, endAt,
	)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(auditEntry(c, userID, "CREATE_RECURRING", "recurring_template", template.ID,
		map[string]any{"category": template.Category, "amount": template.Amount.String(), "frequency": template.Frequency}))

	c.JSON(http.StatusCreated, gin.H{"template": template})
}

// GetTemplates handles listing recurring templates.
// @Summary     Get recurring templates
// @Description Get a paginated list of recurring templates ordered by next due date
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       active    query bool false "Only templates that have not ended"
// @Param       page      query int  false "Page number (default 1)"
// @Param       page_size query int  false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.RecurringTemplate] "Paginated templates"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring [get]
func (h *RecurringHandler) GetTemplates(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	active, err := parseOptionalBoolQuery(c, "active")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.recurringService.GetUserTemplates(userID, page, active != nil && *active)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTemplate handles retrieving one recurring template.
// @Summary     Get recurring template by ID
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} models.RecurringTemplate "Template details"
// @Failure     400 {object} ErrorResponse "Invalid template ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [get]
func (h *RecurringHandler) GetTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	template, err := h.recurringService.GetTemplateByID(userID, templateID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"template": template})
}

// UpdateTemplate handles editing a recurring template.
// @Summary     Update recurring template
// @Description Edit a template; the next due date is kept
// @Tags        recurring
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                true "Template ID"
// @Param       request body UpdateTemplateRequest true "Fields to change"
// @Success     200 {object} models.RecurringTemplate "Updated template"
// @Failure     400 {object} ErrorResponse "Invalid input or template ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [put]
func (h *RecurringHandler) UpdateTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.ClearEndAt && req.EndAt != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_at and clear_end_at are mutually exclusive"))
		return
	}

	update := services.TemplateUpdate{
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Frequency:   req.Frequency,
		ClearEndAt:  req.ClearEndAt,
	}
	if req.EndAt != nil {
		parsed, parseErr := parseFlexibleTime(*req.EndAt)
		if parseErr != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "end_at: "+parseErr.Error()))
			return
		}
		update.EndAt = &parsed
	}

	template, err := h.recurringService.UpdateTemplate(userID, templateID, update)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(auditEntry(c, userID, "UPDATE_RECURRING", "recurring_template", templateID,
		map[string]any{"amount": template.Amount.String(), "frequency": template.Frequency}))

	c.JSON(http.StatusOK, gin.H{"template": template})
}

// DeleteTemplate handles deleting a recurring template.
// @Summary     Delete recurring template
// @Description Stop a template; transactions it already produced are kept
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Template ID"
// @Success     200 {object} MessageResponse "Template deleted"
// @Failure     400 {object} ErrorResponse "Invalid template ID"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Template not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/{id} [delete]
func (h *RecurringHandler) DeleteTemplate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	templateID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.recurringService.DeleteTemplate(userID, templateID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(auditEntry(c, userID, "DELETE_RECURRING", "recurring_template", templateID, nil))

	c.JSON(http.StatusOK, gin.H{"message": "Recurring template deleted successfully"})
}

// RunPass handles a manual recurring pass for the authenticated user.
// @Summary     Run recurring pass
// @Description Materialize due recurring transactions now and reconcile the affected budgets
// @Tags        recurring
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} PassResponse "Pass report"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     503 {object} ErrorResponse "Pass could not run"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recurring/run [post]
func (h *RecurringHandler) RunPass(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.runPass(c, userID)
}

// RunPipelinePass handles a recurring pass triggered by an external scheduler.
// @Summary     Run recurring pass for an owner
// @Description Pipeline endpoint; authenticates with X-API-Key instead of a user token
// @Tags        pipeline
// @Produce     json
// @Security    ApiKeyAuth
// @Param       owner path string true "Owner ID"
// @Success     200 {object} PassResponse "Pass report"
// @Failure     400 {object} ErrorResponse "Invalid owner"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     503 {object} ErrorResponse "Pass could not run"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /pipeline/recurring/run/{owner} [post]
func (h *RecurringHandler) RunPipelinePass(c *gin.Context) {
	owner := strings.TrimSpace(c.Param("owner"))
	if owner == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "owner is required"))
		return
	}

	h.runPass(c, owner)
}

func (h *RecurringHandler) runPass(c *gin.Context, owner string) {
	report, err := h.recurringService.RunNow(c.Request.Context(), owner)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(auditEntry(c, owner, "RUN_RECURRING_PASS", "recurring_pass", "",
		map[string]any{"materialized": len(report.Materialized), "failed": report.Failed()}))

	c.JSON(http.StatusOK, gin.H{"pass": newPassResponse(report)})
}
