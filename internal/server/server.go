package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/karat/internal/alert"
	alertdomain "github.com/smallbiznis/karat/internal/alert/domain"
	"github.com/smallbiznis/karat/internal/analytics"
	analyticsdomain "github.com/smallbiznis/karat/internal/analytics/domain"
	"github.com/smallbiznis/karat/internal/apikey"
	apikeydomain "github.com/smallbiznis/karat/internal/apikey/domain"
	"github.com/smallbiznis/karat/internal/audit"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/authorization"
	"github.com/smallbiznis/karat/internal/cache"
	"github.com/smallbiznis/karat/internal/catalog"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	"github.com/smallbiznis/karat/internal/config"
	"github.com/smallbiznis/karat/internal/inventory"
	inventorydomain "github.com/smallbiznis/karat/internal/inventory/domain"
	"github.com/smallbiznis/karat/internal/material"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/observability"
	obsmiddleware "github.com/smallbiznis/karat/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/karat/internal/observability/metrics"
	obstracing "github.com/smallbiznis/karat/internal/observability/tracing"
	"github.com/smallbiznis/karat/internal/pricing"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
	"github.com/smallbiznis/karat/internal/providers"
	"github.com/smallbiznis/karat/internal/rate"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"github.com/smallbiznis/karat/internal/ratelimit"
	"github.com/smallbiznis/karat/internal/supplier"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	cache.Module,
	providers.Module,
	audit.Module,
	authorization.Module,
	apikey.Module,
	ratelimit.Module,
	supplier.Module,
	material.Module,
	rate.Module,
	catalog.Module,
	pricing.Module,
	inventory.Module,
	alert.Module,
	analytics.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	registerValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	port := strings.TrimSpace(cfg.Port)
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	settings      *config.StoreSettingsHolder
	apiKeySvc     apikeydomain.Service
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	vendorSvc     supplierdomain.Service
	materialSvc   materialdomain.Service
	rateSvc       ratedomain.Service
	catalogSvc    catalogdomain.Service
	pricingSvc    pricingdomain.Service
	inventorySvc  inventorydomain.Service
	alertSvc      alertdomain.Service
	analyticsSvc  analyticsdomain.Service
	publicLimiter *ratelimit.PublicLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Settings      *config.StoreSettingsHolder
	APIKeySvc     apikeydomain.Service
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service
	VendorSvc     supplierdomain.Service
	MaterialSvc   materialdomain.Service
	RateSvc       ratedomain.Service
	CatalogSvc    catalogdomain.Service
	PricingSvc    pricingdomain.Service
	InventorySvc  inventorydomain.Service
	AlertSvc      alertdomain.Service
	AnalyticsSvc  analyticsdomain.Service
	PublicLimiter *ratelimit.PublicLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		settings:      p.Settings,
		apiKeySvc:     p.APIKeySvc,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		vendorSvc:     p.VendorSvc,
		materialSvc:   p.MaterialSvc,
		rateSvc:       p.RateSvc,
		catalogSvc:    p.CatalogSvc,
		pricingSvc:    p.PricingSvc,
		inventorySvc:  p.InventorySvc,
		alertSvc:      p.AlertSvc,
		analyticsSvc:  p.AnalyticsSvc,
		publicLimiter: p.PublicLimiter,
	}

	svc.registerPublicRoutes()
	svc.registerOrderRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(CartSubtotal())

	v1.GET("/products/:id/price", s.throttle("price"), s.GetPrice)
	v1.GET("/products/:id/price/breakdown", s.throttle("price"), s.GetPriceBreakdown)
	v1.POST("/inventory/check", s.throttle("inventory_check"), s.CheckInventory)
	v1.POST("/alerts/subscribe", s.throttle("alert_subscribe"), s.SubscribeAlert)
}

func (s *Server) registerOrderRoutes() {
	orders := s.engine.Group("/v1/orders", s.APIKeyRequired())

	orders.POST("/:id/completed", s.authorize(authorization.ObjectOrder, authorization.ActionOrderComplete), s.CompleteOrder)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin/v1")

	// --- global middlewares ---
	admin.Use(s.APIKeyRequired())

	// -------- Vendors --------
	vendors := admin.Group("/vendors")
	{
		vendors.GET("", s.authorize(authorization.ObjectVendor, authorization.ActionVendorView), s.ListVendors)
		vendors.POST("", s.authorize(authorization.ObjectVendor, authorization.ActionVendorManage), s.CreateVendor)
		vendors.GET("/:id", s.authorize(authorization.ObjectVendor, authorization.ActionVendorView), s.GetVendor)
		vendors.PATCH("/:id", s.authorize(authorization.ObjectVendor, authorization.ActionVendorManage), s.UpdateVendor)
		vendors.DELETE("/:id", s.authorize(authorization.ObjectVendor, authorization.ActionVendorManage), s.DeleteVendor)
		vendors.POST("/:id/toggle", s.authorize(authorization.ObjectVendor, authorization.ActionVendorManage), s.ToggleVendor)
	}

	// -------- Materials --------
	materials := admin.Group("/materials")
	{
		materials.GET("", s.authorize(authorization.ObjectMaterial, authorization.ActionMaterialView), s.ListMaterials)
		materials.POST("", s.authorize(authorization.ObjectMaterial, authorization.ActionMaterialManage), s.CreateMaterial)
		materials.GET("/:id", s.authorize(authorization.ObjectMaterial, authorization.ActionMaterialView), s.GetMaterial)
		materials.PATCH("/:id", s.authorize(authorization.ObjectMaterial, authorization.ActionMaterialManage), s.UpdateMaterial)
		materials.DELETE("/:id", s.authorize(authorization.ObjectMaterial, authorization.ActionMaterialManage), s.DeleteMaterial)
	}

	// -------- Pricing --------
	rules := admin.Group("/pricing/rules")
	{
		rules.GET("", s.authorize(authorization.ObjectPricing, authorization.ActionPricingView), s.ListPricingRules)
		rules.POST("", s.authorize(authorization.ObjectPricing, authorization.ActionPricingManage), s.AddPricingRule)
		rules.DELETE("/:id", s.authorize(authorization.ObjectPricing, authorization.ActionPricingManage), s.DeletePricingRule)
	}
	admin.GET("/settings/labor-cost", s.authorize(authorization.ObjectPricing, authorization.ActionPricingView), s.GetLaborCost)
	admin.PUT("/settings/labor-cost", s.authorize(authorization.ObjectPricing, authorization.ActionPricingManage), s.SetLaborCost)

	// -------- Products --------
	products := admin.Group("/products")
	{
		products.GET("", s.authorize(authorization.ObjectPricing, authorization.ActionPricingView), s.ListProducts)
		products.PUT("/:id", s.authorize(authorization.ObjectProduct, authorization.ActionProductManage), s.UpsertProduct)
		products.PUT("/:id/jewelry", s.authorize(authorization.ObjectProduct, authorization.ActionProductManage), s.SetProductJewelry)
		products.PUT("/:id/materials/:material_id", s.authorize(authorization.ObjectProduct, authorization.ActionProductManage), s.SetProductComponent)
	}

	// -------- Inventory --------
	inv := admin.Group("/inventory")
	{
		inv.GET("", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryView), s.ListInventory)
		inv.GET("/:material_id", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryView), s.GetInventory)
		inv.POST("/:material_id/adjust", s.authorize(authorization.ObjectInventory, authorization.ActionInventoryAdjust), s.AdjustInventory)
	}

	// -------- Rates --------
	rates := admin.Group("/rates")
	{
		rates.GET("", s.authorize(authorization.ObjectRate, authorization.ActionRateView), s.GetRates)
		rates.POST("/refresh", s.authorize(authorization.ObjectRate, authorization.ActionRateRefresh), s.RefreshRates)
		rates.GET("/history", s.authorize(authorization.ObjectRate, authorization.ActionRateView), s.GetRateHistory)
	}

	// -------- Analytics --------
	stats := admin.Group("/analytics")
	{
		stats.GET("/trends", s.authorize(authorization.ObjectAnalytics, authorization.ActionAnalyticsView), s.GetRateTrends)
		stats.GET("/average", s.authorize(authorization.ObjectAnalytics, authorization.ActionAnalyticsView), s.GetAverageRate)
		stats.GET("/impact", s.authorize(authorization.ObjectAnalytics, authorization.ActionAnalyticsView), s.GetPriceImpact)
	}

	// -------- Audit Logs --------
	auditLogs := admin.Group("/audit-logs")
	{
		auditLogs.GET("", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
		auditLogs.DELETE("", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogClear), s.ClearAuditLogs)
	}

	// -------- API Keys --------
	apiKeys := admin.Group("/api-keys")
	{
		apiKeys.GET("", s.authorize(authorization.ObjectAPIKey, authorization.ActionAPIKeyView), s.ListAPIKeys)
		apiKeys.POST("", s.authorize(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.CreateAPIKey)
		apiKeys.POST("/:key_id/rotate", s.authorize(authorization.ObjectAPIKey, authorization.ActionAPIKeyRotate), s.RotateAPIKey)
		apiKeys.DELETE("/:key_id", s.authorize(authorization.ObjectAPIKey, authorization.ActionAPIKeyRevoke), s.RevokeAPIKey)
	}
}
