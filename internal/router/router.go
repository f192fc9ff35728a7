package router

import (
	"time"

	"miscompras/internal/config"
	"miscompras/internal/handler"
	"miscompras/internal/infra"
	"miscompras/internal/middleware"
	"miscompras/internal/policy"
	"miscompras/internal/repository"
	"miscompras/internal/service"
	"miscompras/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, storage *infra.LocalStorage) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler(cfg.IsDevelopment()))
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Infrastructure ───────────────────────────────────────────────────────
	renderer := infra.NewPDFRenderer(storage)
	dispatcher := worker.NewDispatcher(rdb)

	// ── Repositories ─────────────────────────────────────────────────────────
	store := repository.NewStore(db)

	// ── Services ─────────────────────────────────────────────────────────────
	notifier := service.NewNotificationService(store.Users, store.Notifications, dispatcher, cfg.AppURL)
	authSvc := service.NewAuthService(store.Users, cfg)
	budgetSvc := service.NewBudgetService(store)
	requirementSvc := service.NewRequirementService(store, storage, notifier)
	groupSvc := service.NewGroupService(store, storage, renderer, notifier)
	paymentSvc := service.NewPaymentService(store)
	invoiceSvc := service.NewInvoiceService(store)
	catalogSvc := service.NewCatalogService(store.Catalog)

	// ── Handlers ─────────────────────────────────────────────────────────────
	maxUpload := int64(cfg.MaxUploadMB) << 20
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(authSvc)
	requirementsH := handler.NewRequirementsHandler(requirementSvc, maxUpload)
	groupsH := handler.NewGroupsHandler(groupSvc)
	paymentsH := handler.NewPaymentsHandler(paymentSvc)
	invoicesH := handler.NewInvoicesHandler(invoiceSvc)
	budgetsH := handler.NewBudgetsHandler(budgetSvc)
	notificationsH := handler.NewNotificationsHandler(notifier)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	dlqH := handler.NewEmailDLQHandler(rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, dispatcher))
	r.Static(cfg.PublicUploadPrefix, storage.BaseDir())

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		reqs := v1.Group("/requirements")
		{
			reqs.POST("", requirementsH.Create)
			reqs.GET("", requirementsH.List)
			reqs.POST("/mass", groupsH.MassCreate)
			reqs.POST("/asiento", middleware.RequireCapability(policy.CreateAsiento), requirementsH.CreateAsiento)
			reqs.GET("/:id", requirementsH.Get)
			reqs.PUT("/:id", middleware.RequireCapability(policy.EditRequirement), requirementsH.Update)
			reqs.PATCH("/:id/status", middleware.RequireCapability(policy.UpdateStatus), requirementsH.UpdateStatus)
			reqs.DELETE("/:id", middleware.RequireCapability(policy.DeleteRequirement), requirementsH.Delete)
			reqs.GET("/:id/history", requirementsH.History)

			reqs.POST("/:id/payments", paymentsH.Create)
			reqs.GET("/:id/payments", paymentsH.List)
			reqs.PATCH("/:id/multiple-payments", paymentsH.ToggleMultiple)
		}

		v1.PUT("/payments/:id", paymentsH.Update)
		v1.DELETE("/payments/:id", middleware.RequireCapability(policy.DeletePayment), paymentsH.Delete)

		groups := v1.Group("/groups")
		{
			groups.GET("/pending", groupsH.ListPending)
			groups.POST("/:id/approve", middleware.RequireCapability(policy.ReviewGroup), groupsH.Approve)
			groups.POST("/:id/reject", middleware.RequireCapability(policy.ReviewGroup), groupsH.Reject)
		}

		inv := v1.Group("/invoices")
		{
			inv.POST("", invoicesH.Create)
			inv.GET("", middleware.RequireCapability(policy.ViewAll), invoicesH.List)
			inv.GET("/:id", invoicesH.Get)
			inv.POST("/:id/verify", invoicesH.Verify)
			inv.POST("/:id/approve", middleware.RequireCapability(policy.ApproveInvoice), invoicesH.Approve)
			inv.POST("/:id/pay", invoicesH.Pay)
		}

		v1.GET("/budgets", budgetsH.List)
		v1.GET("/budgets/:id", budgetsH.Get)
		v1.POST("/budgets", middleware.RequireCapability(policy.ManageBudget), budgetsH.Create)

		v1.GET("/notifications", notificationsH.List)
		v1.PATCH("/notifications/read-all", notificationsH.MarkAllRead)
		v1.PATCH("/notifications/:id/read", notificationsH.MarkRead)

		v1.GET("/areas", catalogH.Areas())
		v1.GET("/projects", catalogH.Projects())
		v1.GET("/categories", catalogH.Categories())
		v1.GET("/suppliers", catalogH.Suppliers())

		users := v1.Group("/users", middleware.RequireCapability(policy.ManageUsers))
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
		}

		admin := v1.Group("/admin", middleware.RequireCapability(policy.ManageUsers))
		{
			admin.GET("/email-dlq", dlqH.List)
			admin.POST("/email-dlq/requeue", dlqH.Requeue)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
