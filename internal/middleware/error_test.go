package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "spendcycle/internal/errors"
)

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		name       string
		handler    gin.HandlerFunc
		wantStatus int
		wantCode   string
	}{
		{
			name:       "app error keeps its code",
			handler:    func(c *gin.Context) { _ = c.Error(apperrors.ErrBudgetNotFound) },
			wantStatus: http.StatusNotFound,
			wantCode:   "BUDGET_NOT_FOUND",
		},
		{
			name: "wrapped app error keeps its code",
			handler: func(c *gin.Context) {
				_ = c.Error(fmt.Errorf("loading: %w", apperrors.Wrap(apperrors.ErrPassAborted, errors.New("lock"))))
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   "PASS_ABORTED",
		},
		{
			name:       "unexpected error is hidden",
			handler:    func(c *gin.Context) { _ = c.Error(errors.New("pq: connection refused")) },
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler())
			r.GET("/x", tt.handler)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			errObj := parseBody(t, rec)["error"].(map[string]interface{})
			if errObj["code"] != tt.wantCode {
				t.Errorf("expected %s, got %v", tt.wantCode, errObj["code"])
			}
		})
	}

	t.Run("written responses are left alone", func(t *testing.T) {
		r := gin.New()
		r.Use(ErrorHandler())
		r.GET("/x", func(c *gin.Context) {
			c.JSON(http.StatusTeapot, gin.H{"ok": true})
			_ = c.Error(errors.New("late"))
		})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", http.NoBody))

		if rec.Code != http.StatusTeapot {
			t.Fatalf("expected 418, got %d", rec.Code)
		}
	})
}

func TestErrorHandler_EchoesRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogging(), ErrorHandler())
	r.GET("/x", func(c *gin.Context) { _ = c.Error(apperrors.ErrTemplateNotFound) })

	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set(requestIDHeader, "trace-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	errObj := parseBody(t, rec)["error"].(map[string]interface{})
	if errObj["request_id"] != "trace-1" {
		t.Errorf("expected request_id trace-1, got %v", errObj["request_id"])
	}
}

func TestRequestLogging(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogging())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	t.Run("generates a request id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))

		if rec.Header().Get(requestIDHeader) == "" {
			t.Error("expected X-Request-ID header")
		}
	})

	t.Run("reuses an incoming request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
		req.Header.Set(requestIDHeader, "cron-2025-06-15")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get(requestIDHeader); got != "cron-2025-06-15" {
			t.Errorf("expected reused request id, got %q", got)
		}
	})
}
