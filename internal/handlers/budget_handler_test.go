package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "spendcycle/internal/errors"
	"spendcycle/internal/models"
	"spendcycle/internal/pagination"
	"spendcycle/internal/reconcile"
	"spendcycle/internal/services"
)

func setupBudgetRouter(handler *BudgetHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/budgets", handler.CreateBudget)
	auth.GET("/budgets", handler.GetBudgets)
	auth.POST("/budgets/reconcile", handler.ReconcileBudgets)
	auth.GET("/budgets/:id", handler.GetBudget)
	auth.PUT("/budgets/:id", handler.UpdateBudget)
	auth.DELETE("/budgets/:id", handler.DeleteBudget)
	auth.GET("/budgets/:id/progress", handler.GetBudgetProgress)
	return r
}

func TestBudgetHandler_CreateBudget(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var gotThreshold *int
		svc := &mockBudgetService{
			createBudgetFn: func(userID, category string, limit decimal.Decimal, cycle models.CycleType, threshold *int) (*models.Budget, error) {
				gotThreshold = threshold
				return &models.Budget{
					Base:             models.Base{ID: testID},
					UserID:           userID,
					Category:         category,
					LimitAmount:      limit,
					CycleType:        cycle,
					ThresholdPercent: models.DefaultThresholdPercent,
				}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(svc, audit))

		rec := doRequest(r, "POST", "/budgets", `{"category":"Food","limit_amount":"500.00","cycle_type":"MONTHLY"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["category"] != "Food" {
			t.Errorf("expected Food, got %v", budget["category"])
		}
		if budget["limit_amount"] != "500" {
			t.Errorf("expected limit 500, got %v", budget["limit_amount"])
		}
		if gotThreshold != nil {
			t.Errorf("expected threshold to be left to the service default, got %d", *gotThreshold)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "CREATE_BUDGET" {
			t.Errorf("expected CREATE_BUDGET audit entry, got %v", audit.actions)
		}
	})

	t.Run("accepts numeric amounts and explicit threshold", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(_, _ string, limit decimal.Decimal, _ models.CycleType, threshold *int) (*models.Budget, error) {
				if !limit.Equal(decimal.RequireFromString("99.5")) {
					t.Errorf("expected limit 99.5, got %s", limit)
				}
				if threshold == nil || *threshold != 50 {
					t.Errorf("expected threshold 50, got %v", threshold)
				}
				return &models.Budget{Base: models.Base{ID: testID}}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets", `{"category":"Fun","limit_amount":99.5,"cycle_type":"WEEKLY","threshold_percent":50}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	for name, body := range map[string]string{
		"missing category":  `{"limit_amount":"10","cycle_type":"MONTHLY"}`,
		"zero limit":        `{"category":"Food","limit_amount":"0","cycle_type":"MONTHLY"}`,
		"negative limit":    `{"category":"Food","limit_amount":"-5","cycle_type":"MONTHLY"}`,
		"missing limit":     `{"category":"Food","cycle_type":"MONTHLY"}`,
		"invalid cycle":     `{"category":"Food","limit_amount":"10","cycle_type":"YEARLY"}`,
		"missing cycle":     `{"category":"Food","limit_amount":"10"}`,
		"threshold too big": `{"category":"Food","limit_amount":"10","cycle_type":"DAILY","threshold_percent":101}`,
		"malformed json":    `{"category":`,
	} {
		t.Run("returns 400 on "+name, func(t *testing.T) {
			r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

			rec := doRequest(r, "POST", "/budgets", body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
		})
	}

	t.Run("returns 409 on duplicate category", func(t *testing.T) {
		svc := &mockBudgetService{
			createBudgetFn: func(_, _ string, _ decimal.Decimal, _ models.CycleType, _ *int) (*models.Budget, error) {
				return nil, apperrors.ErrDuplicateBudget
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets", `{"category":"Food","limit_amount":"10","cycle_type":"MONTHLY"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_BUDGET")
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewBudgetHandler(&mockBudgetService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/budgets", handler.CreateBudget)

		rec := doRequest(r, "POST", "/budgets", `{"category":"Food","limit_amount":"10","cycle_type":"MONTHLY"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_GetBudgets(t *testing.T) {
	t.Run("returns 200 with paginated budgets", func(t *testing.T) {
		svc := &mockBudgetService{
			getUserBudgetsFn: func(_ string, page pagination.PageRequest, _ *models.CycleType) (*pagination.PageResponse[models.Budget], error) {
				resp := pagination.NewPageResponse([]models.Budget{{Category: "Food"}, {Category: "Rent"}}, 1, 20, 2)
				return &resp, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if data := result["data"].([]interface{}); len(data) != 2 {
			t.Errorf("expected 2 budgets, got %d", len(data))
		}
		if result["total_items"].(float64) != 2 {
			t.Errorf("expected total_items 2, got %v", result["total_items"])
		}
	})

	t.Run("passes cycle filter to service", func(t *testing.T) {
		var gotCycle *models.CycleType
		svc := &mockBudgetService{
			getUserBudgetsFn: func(_ string, _ pagination.PageRequest, cycle *models.CycleType) (*pagination.PageResponse[models.Budget], error) {
				gotCycle = cycle
				resp := pagination.NewPageResponse([]models.Budget{}, 1, 20, 0)
				return &resp, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets?cycle_type=WEEKLY", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotCycle == nil || *gotCycle != models.CycleWeekly {
			t.Errorf("expected WEEKLY filter, got %v", gotCycle)
		}
	})

	t.Run("returns 400 on invalid cycle", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets?cycle_type=yearly", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on page size over limit", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets?page_size=500", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_GetBudget(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetByIDFn: func(userID, budgetID string) (*models.Budget, error) {
				if userID != testUserID || budgetID != testID {
					t.Errorf("unexpected ids %q %q", userID, budgetID)
				}
				return &models.Budget{Base: models.Base{ID: budgetID}, Category: "Food"}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets/"+testID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		budget := parseJSON(t, rec)["budget"].(map[string]interface{})
		if budget["id"] != testID {
			t.Errorf("expected id %s, got %v", testID, budget["id"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetByIDFn: func(_, _ string) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets/"+testID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "BUDGET_NOT_FOUND")
	})

	t.Run("returns 400 on invalid ID", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_UpdateBudget(t *testing.T) {
	t.Run("returns 200 and forwards only given fields", func(t *testing.T) {
		var got services.BudgetUpdate
		svc := &mockBudgetService{
			updateBudgetFn: func(_, budgetID string, update services.BudgetUpdate) (*models.Budget, error) {
				got = update
				return &models.Budget{Base: models.Base{ID: budgetID}, LimitAmount: *update.LimitAmount}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/budgets/"+testID, `{"limit_amount":"750"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if got.LimitAmount == nil || !got.LimitAmount.Equal(decimal.NewFromInt(750)) {
			t.Errorf("expected limit 750, got %v", got.LimitAmount)
		}
		if got.ThresholdPercent != nil || got.CycleType != nil {
			t.Errorf("expected untouched fields to be nil, got %+v", got)
		}
	})

	t.Run("returns 400 on invalid cycle", func(t *testing.T) {
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/budgets/"+testID, `{"cycle_type":"HOURLY"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockBudgetService{
			updateBudgetFn: func(_, _ string, _ services.BudgetUpdate) (*models.Budget, error) {
				return nil, apperrors.ErrBudgetNotFound
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PUT", "/budgets/"+testID, `{"threshold_percent":90}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_DeleteBudget(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		audit := &mockAuditService{}
		r := setupBudgetRouter(NewBudgetHandler(&mockBudgetService{}, audit))

		rec := doRequest(r, "DELETE", "/budgets/"+testID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(audit.actions) != 1 || audit.actions[0] != "DELETE_BUDGET" {
			t.Errorf("expected DELETE_BUDGET audit entry, got %v", audit.actions)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		svc := &mockBudgetService{
			deleteBudgetFn: func(_, _ string) error { return apperrors.ErrBudgetNotFound },
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "DELETE", "/budgets/"+testID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestBudgetHandler_GetBudgetProgress(t *testing.T) {
	t.Run("returns 200 with progress", func(t *testing.T) {
		svc := &mockBudgetService{
			getBudgetProgressFn: func(_, budgetID string) (*services.BudgetProgress, error) {
				return &services.BudgetProgress{
					BudgetID:    budgetID,
					Category:    "Food",
					Limit:       decimal.NewFromInt(100),
					Spent:       decimal.NewFromInt(85),
					Remaining:   decimal.NewFromInt(15),
					Percentage:  85,
					AtThreshold: true,
					CycleEndsAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
				}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "GET", "/budgets/"+testID+"/progress", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		progress := parseJSON(t, rec)["progress"].(map[string]interface{})
		if progress["percentage"].(float64) != 85 {
			t.Errorf("expected 85%%, got %v", progress["percentage"])
		}
		if progress["at_threshold"] != true {
			t.Errorf("expected at_threshold true")
		}
	})
}

func TestBudgetHandler_ReconcileBudgets(t *testing.T) {
	t.Run("returns 200 with result", func(t *testing.T) {
		svc := &mockBudgetService{
			reconcileBudgetsFn: func(userID string) (*reconcile.Result, error) {
				return &reconcile.Result{
					Reset:   []models.Budget{{Category: "Food"}},
					Updated: []models.Budget{{Category: "Food"}, {Category: "Rent"}},
					Failures: []reconcile.BudgetFailure{
						{BudgetID: testID, Category: "Fun", Cause: errors.New("db timeout")},
					},
				}, nil
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets/reconcile", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)["reconciliation"].(map[string]interface{})
		if n := len(result["updated"].([]interface{})); n != 2 {
			t.Errorf("expected 2 updated budgets, got %d", n)
		}
		if n := len(result["threshold_crossed"].([]interface{})); n != 0 {
			t.Errorf("expected empty threshold_crossed, got %d", n)
		}
		failures := result["failures"].([]interface{})
		if len(failures) != 1 || failures[0].(map[string]interface{})["error"] != "db timeout" {
			t.Errorf("unexpected failures: %v", failures)
		}
	})

	t.Run("returns 503 when pass aborted", func(t *testing.T) {
		svc := &mockBudgetService{
			reconcileBudgetsFn: func(string) (*reconcile.Result, error) {
				return nil, apperrors.ErrPassAborted
			},
		}
		r := setupBudgetRouter(NewBudgetHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/budgets/reconcile", "")

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "PASS_ABORTED")
	})
}
