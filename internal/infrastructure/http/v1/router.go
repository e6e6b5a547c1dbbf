// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"pharmaledger/internal/app"
	"pharmaledger/internal/core/security"
	"pharmaledger/internal/infrastructure/http/v1/dto"
	"pharmaledger/internal/infrastructure/http/v1/handlers"
	"pharmaledger/internal/infrastructure/http/v1/middleware"
	"pharmaledger/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Services are the ledger services the handlers call
	Services *app.Services

	// Logger for request logging
	Logger *logger.Logger

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	// Idempotency stores replayable responses; nil disables the middleware
	Idempotency middleware.IdempotencyStore

	// HealthChecks are pinged by /health/ready
	HealthChecks map[string]handlers.Pinger

	// Debug switches gin to debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	dto.RegisterValidators()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	api.Use(middleware.UserContext(cfg.Logger))
	if cfg.Idempotency != nil {
		api.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	svc := cfg.Services

	registerSalesRoutes(api, base, svc)
	registerPurchaseOrderRoutes(api, base, svc)
	registerStockRoutes(api, base, svc)
	registerReorderRoutes(api, base, svc)
	registerCashSessionRoutes(api, base, svc)
	registerSettingsRoutes(api, base, svc)

	return router
}

// registerSalesRoutes registers sales, voids and refunds.
func registerSalesRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	sales := handlers.NewSaleHandler(base, svc.Sales)
	refunds := handlers.NewRefundHandler(base, svc.Refunds)

	group := rg.Group("/sales")
	RegisterDocumentRoutes(group, sales, security.PermSaleRead, security.PermSaleWrite,
		Action{Name: "void", Handler: sales.Void},
	)
	group.GET("/:id/refunds", middleware.RequirePermission(security.PermRefundRead), refunds.ListBySale)
	group.POST("/:id/refunds", middleware.RequirePermission(security.PermRefundWrite), refunds.Create)

	byID := rg.Group("/refunds")
	byID.GET("/:id", middleware.RequirePermission(security.PermRefundRead), refunds.Get)
	byID.POST("/:id/cancel", middleware.RequirePermission(security.PermRefundWrite), refunds.Cancel)
}

// registerPurchaseOrderRoutes registers ordering and receiving.
func registerPurchaseOrderRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	h := handlers.NewPurchaseOrderHandler(base, svc.Orders)

	group := rg.Group("/purchase-orders")
	RegisterDocumentRoutes(group, h, security.PermPurchaseOrderRead, security.PermPurchaseOrderWrite,
		Action{Name: "approve", Handler: h.Approve},
		Action{Name: "cancel", Handler: h.Cancel},
		Action{Name: "receive", Handler: h.Receive},
	)
	group.GET("/:id/receipts", middleware.RequirePermission(security.PermPurchaseOrderRead), h.ListReceipts)
}

// registerStockRoutes registers ledger reads, the export and adjustments.
func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	h := handlers.NewStockHandler(base, svc.Stock)
	adj := handlers.NewStockAdjustmentHandler(base, svc.Adjustments)

	group := rg.Group("/stock")
	read := middleware.RequirePermission(security.PermStockRead)
	group.GET("/batches", read, h.ListBatches)
	group.GET("/batches/:id", read, h.GetBatch)
	group.GET("/on-hand/:itemId", read, h.OnHand)
	group.GET("/movements", read, h.ListMovements)
	group.GET("/movements/export", read, h.ExportMovements)

	RegisterDocumentRoutes(group.Group("/adjustments"), adj, security.PermStockRead, security.PermStockWrite,
		Action{Name: "approve", Handler: adj.Approve},
		Action{Name: "reject", Handler: adj.Reject},
	)
}

// registerReorderRoutes registers levels, alerts and order generation.
func registerReorderRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	h := handlers.NewReorderHandler(base, svc.Reorder)

	group := rg.Group("/reorder")
	read := middleware.RequirePermission(security.PermReorderRead)
	write := middleware.RequirePermission(security.PermReorderWrite)

	group.GET("/alerts", read, h.Alerts)
	group.POST("/generate", middleware.RequireAllPermissions(security.PermReorderWrite, security.PermPurchaseOrderWrite), h.Generate)
	group.GET("/levels", read, h.ListLevels)
	group.GET("/levels/:itemId", read, h.GetLevel)
	group.PUT("/levels/:itemId", write, h.SetLevel)
	group.DELETE("/levels/:itemId", write, h.DeleteLevel)
}

// registerCashSessionRoutes registers drawer sessions.
func registerCashSessionRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	h := handlers.NewCashSessionHandler(base, svc.Sessions)

	group := rg.Group("/cash-sessions")
	read := middleware.RequirePermission(security.PermCashSessionRead)
	write := middleware.RequirePermission(security.PermCashSessionWrite)

	group.POST("", write, h.Open)
	group.GET("", read, h.List)
	group.GET("/current", read, h.Current)
	group.GET("/:id", read, h.Get)
	group.POST("/:id/close", write, h.Close)
	group.POST("/:id/drops", write, h.RecordDrop)
}

// registerSettingsRoutes registers the organization and staff records.
func registerSettingsRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, svc *app.Services) {
	org := handlers.NewOrganizationHandler(base, svc.Organization)
	rg.GET("/organization", middleware.RequirePermission(security.PermOrganizationRead), org.Get)
	rg.PUT("/organization", middleware.RequirePermission(security.PermOrganizationWrite), org.Update)

	staff := handlers.NewStaffHandler(base, svc.Auth)
	group := rg.Group("/staff")
	group.GET("", middleware.RequirePermission(security.PermStaffRead), staff.List)
	group.GET("/:userId", middleware.RequirePermission(security.PermStaffRead), staff.Get)
	group.PUT("/:userId", middleware.RequirePermission(security.PermStaffWrite), staff.Save)
	// Staff set their own PIN; the service refuses anyone else's unless admin.
	group.PUT("/:userId/pin", staff.SetPIN)
}
