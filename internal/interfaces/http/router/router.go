package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/clinicore/backend/internal/infrastructure/auth"
	"github.com/clinicore/backend/internal/infrastructure/config"
	"github.com/clinicore/backend/internal/infrastructure/logger"
	"github.com/clinicore/backend/internal/infrastructure/telemetry"
	"github.com/clinicore/backend/internal/interfaces/http/handler"
	"github.com/clinicore/backend/internal/interfaces/http/middleware"
)

// Handlers bundles the HTTP handlers the router mounts.
type Handlers struct {
	Invoice      *handler.InvoiceHandler
	Payment      *handler.PaymentHandler
	PaymentPlan  *handler.PaymentPlanHandler
	Adjustment   *handler.AdjustmentHandler
	Audit        *handler.AuditHandler
	Organization *handler.OrganizationHandler
	Health       *handler.HealthHandler
}

// Options carries the cross-cutting dependencies wired into the middleware
// chain.
type Options struct {
	Config     *config.Config
	Logger     *zap.Logger
	JWTService *auth.JWTService
	Metrics    *telemetry.MeterProvider
	Tracing    bool
}

// New builds the gin engine with the full middleware chain and all routes
// mounted under /api/v1. Health endpoints stay outside the version prefix
// and skip authentication.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.Config.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(opts.Config.HTTP.TrustedProxies)
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(opts.Config.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = opts.Config.HTTP.CORSAllowOrigins
	}
	if len(opts.Config.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = opts.Config.HTTP.CORSAllowMethods
	}
	if len(opts.Config.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = opts.Config.HTTP.CORSAllowHeaders
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(opts.Logger))
	engine.Use(logger.Recovery(opts.Logger))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(corsCfg))
	if opts.Config.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.Config.HTTP.MaxBodySize))
	}
	if opts.Tracing {
		engine.Use(otelgin.Middleware(opts.Config.Telemetry.ServiceName))
	}
	engine.Use(middleware.HTTPMetrics(opts.Metrics))

	engine.GET("/health", h.Health.Health)
	engine.GET("/ready", h.Health.Ready)

	api := engine.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: opts.JWTService,
		Logger:     opts.Logger,
	}))

	registerBillingRoutes(api, h)
	registerAuditRoutes(api, h)
	registerOrganizationRoutes(api, h)

	return engine
}

func registerBillingRoutes(api *gin.RouterGroup, h Handlers) {
	invoices := api.Group("/invoices")
	{
		invoices.POST("", h.Invoice.Create)
		invoices.GET("", h.Invoice.List)
		invoices.GET("/:id", h.Invoice.Get)
		invoices.PATCH("/:id", h.Invoice.Update)
		invoices.GET("/:id/summary", h.Invoice.Summary)
		invoices.POST("/:id/items", h.Invoice.AddItem)
		invoices.PATCH("/:id/items/:item_id", h.Invoice.UpdateItemQuantity)
		invoices.DELETE("/:id/items/:item_id", h.Invoice.RemoveItem)
		invoices.POST("/:id/discount", h.Invoice.ApplyDiscount)
		invoices.POST("/:id/send", h.Invoice.Send)
		invoices.POST("/:id/void", h.Invoice.Void)
		invoices.POST("/:id/write-off", h.Adjustment.WriteOff)
		invoices.GET("/:id/payments", h.Payment.ListForInvoice)
		invoices.GET("/:id/payment-plans", h.PaymentPlan.ListForInvoice)
		invoices.GET("/:id/adjustments", h.Adjustment.ListForInvoice)
	}

	payments := api.Group("/payments")
	{
		payments.POST("", h.Payment.Record)
		payments.GET("/:id", h.Payment.Get)
		payments.POST("/:id/refund", h.Payment.Refund)
	}

	plans := api.Group("/payment-plans")
	{
		plans.POST("", h.PaymentPlan.Create)
		plans.GET("/:id", h.PaymentPlan.Get)
		plans.POST("/:id/installments/:installment_id/pay", h.PaymentPlan.PayInstallment)
	}

	adjustments := api.Group("/adjustments")
	{
		adjustments.POST("", h.Adjustment.Apply)
		adjustments.GET("/:id", h.Adjustment.Get)
	}
}

func registerAuditRoutes(api *gin.RouterGroup, h Handlers) {
	audit := api.Group("/audit")
	{
		audit.GET("/users/:id", h.Audit.ListForUser)
		audit.GET("/:entity_type/:id", h.Audit.ListForEntity)
	}
}

func registerOrganizationRoutes(api *gin.RouterGroup, h Handlers) {
	organizations := api.Group("/organizations")
	{
		organizations.POST("", h.Organization.Create)
		organizations.GET("/:id", h.Organization.Get)
		organizations.POST("/:id/activate", h.Organization.Activate)
		organizations.POST("/:id/deactivate", h.Organization.Deactivate)
	}
}
