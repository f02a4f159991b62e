// Package server assembles the services, the recurring coordinator and the
// HTTP router into a runnable application.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"spendcycle/internal/clock"
	"spendcycle/internal/config"
	"spendcycle/internal/coordinator"
	_ "spendcycle/internal/docs" // swagger spec
	"spendcycle/internal/handlers"
	"spendcycle/internal/ledger"
	"spendcycle/internal/metrics"
	"spendcycle/internal/middleware"
	"spendcycle/internal/notify"
	"spendcycle/internal/services"
)

// App is the wired application.
type App struct {
	DB          *gorm.DB
	Coordinator *coordinator.Coordinator
	Scheduler   *coordinator.Scheduler
	Router      *gin.Engine
}

// NewNotifier builds the notification sink: every intent is logged, and
// persisted to the inbox when persist is set.
func NewNotifier(db *gorm.DB, persist bool, log *zap.SugaredLogger) notify.Notifier {
	sinks := notify.Multi{notify.NewLogNotifier(log.Named("notify"))}
	if persist {
		sinks = append(sinks, notify.NewStoreNotifier(db))
	}
	return sinks
}

// NewCoordinator builds the recurring coordinator over db.
func NewCoordinator(cfg *config.Config, db *gorm.DB, clk clock.Clock, log *zap.SugaredLogger) *coordinator.Coordinator {
	return coordinator.New(ledger.NewGormStore(db), clk, NewNotifier(db, cfg.NotifyPersist, log), log.Named("coordinator"))
}

// New wires services, handlers and routes.
func New(cfg *config.Config, db *gorm.DB, clk clock.Clock, log *zap.SugaredLogger) *App {
	coord := NewCoordinator(cfg, db, clk, log)

	transactionService := services.NewTransactionService(db, clk, coord)
	budgetService := services.NewBudgetService(db, clk, coord)
	recurringService := services.NewRecurringService(db, clk, coord)
	notificationService := services.NewNotificationService(db, clk)
	reportService := services.NewReportService(db)
	auditService := services.NewAuditService(db)

	h := routeHandlers{
		transaction:  handlers.NewTransactionHandler(transactionService, auditService),
		budget:       handlers.NewBudgetHandler(budgetService, auditService),
		recurring:    handlers.NewRecurringHandler(recurringService, auditService),
		notification: handlers.NewNotificationHandler(notificationService),
		report:       handlers.NewReportHandler(reportService),
	}

	return &App{
		DB:          db,
		Coordinator: coord,
		Scheduler:   coordinator.NewScheduler(coord, cfg.RecurringInterval, cfg.RecurringWorkers, log.Named("scheduler")),
		Router:      newRouter(cfg, h),
	}
}

type routeHandlers struct {
	transaction  *handlers.TransactionHandler
	budget       *handlers.BudgetHandler
	recurring    *handlers.RecurringHandler
	notification *handlers.NotificationHandler
	report       *handlers.ReportHandler
}

func newRouter(cfg *config.Config, h routeHandlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", metrics.Handler())
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Pipeline routes authenticate with an API key
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(cfg.PipelineAPIKeys))
	pipeline.POST("/recurring/run/:owner", h.recurring.RunPipelinePass)

	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	transactions := protected.Group("/transactions")
	transactions.POST("", h.transaction.CreateTransaction)
	transactions.GET("", h.transaction.GetUserTransactions)
	transactions.GET("/:id", h.transaction.GetTransactionByID)
	transactions.PUT("/:id", h.transaction.UpdateTransaction)
	transactions.DELETE("/:id", h.transaction.DeleteTransaction)

	budgets := protected.Group("/budgets")
	budgets.POST("", h.budget.CreateBudget)
	budgets.GET("", h.budget.GetBudgets)
	budgets.POST("/reconcile", h.budget.ReconcileBudgets)
	budgets.GET("/:id", h.budget.GetBudget)
	budgets.PUT("/:id", h.budget.UpdateBudget)
	budgets.DELETE("/:id", h.budget.DeleteBudget)
	budgets.GET("/:id/progress", h.budget.GetBudgetProgress)

	recurring := protected.Group("/recurring")
	recurring.POST("", h.recurring.CreateTemplate)
	recurring.GET("", h.recurring.GetTemplates)
	recurring.POST("/run", h.recurring.RunPass)
	recurring.GET("/:id", h.recurring.GetTemplate)
	recurring.PUT("/:id", h.recurring.UpdateTemplate)
	recurring.DELETE("/:id", h.recurring.DeleteTemplate)

	notifications := protected.Group("/notifications")
	notifications.GET("", h.notification.GetNotifications)
	notifications.POST("/:id/read", h.notification.MarkRead)

	reports := protected.Group("/reports")
	reports.GET("/categories", h.report.GetCategoryReport)
	reports.GET("/categories/:category", h.report.GetCategoryStats)

	return router
}
