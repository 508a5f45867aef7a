package main

import (
	"context"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"clink-api/internal/auth"
	"clink-api/internal/catalog"
	"clink-api/internal/dashboard"
	"clink-api/internal/entitlement"
	"clink-api/internal/handler"
	"clink-api/internal/middleware"
	"clink-api/internal/store"
	"clink-api/pkg/config"
	"clink-api/pkg/database"
	"clink-api/pkg/jwtutil"
	"clink-api/pkg/logger"
	"clink-api/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting clink API...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	st := store.New(db)
	if err := st.SeedSystemRoles(context.Background()); err != nil {
		log.Fatal("Failed to seed system roles", zap.Error(err))
	}
	log.Info("System roles seeded")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	gate := auth.NewGate(st, nil, log)
	entitlements := entitlement.NewResolver(st)
	dashTokens := dashboard.NewTokenCache(dashboard.NewFetcher(cfg.Dashboard, nil), cfg.Dashboard.TokenTTL/10)

	authHandler := handler.NewAuthHandler(st)
	roleHandler := handler.NewRoleHandler(st)
	planHandler := handler.NewPlanHandler(st, entitlements)
	companyHandler := handler.NewCompanyHandler(st, entitlements)
	dashHandler := handler.NewDashboardHandler(dashTokens)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes - these don't belong under /api since they're for getting access to the API
	authGroup := e.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/register", authHandler.Register)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.Authenticate(gate))

	// User session
	users := api.Group("/users")
	users.GET("/profile", authHandler.Profile)
	users.POST("/refresh", authHandler.RefreshToken)
	users.POST("/change-password", authHandler.ChangePassword)
	users.POST("/billing-company", authHandler.UpdateCompany)

	// Companies - listing and creation don't require company context
	companies := api.Group("/companies")
	companies.GET("", companyHandler.ListMyCompanies)
	companies.POST("", companyHandler.CreateCompany)
	companies.GET("/:id", companyHandler.GetCompany)

	// Permission catalog
	api.GET("/permissions", roleHandler.ListPermissions, middleware.RequirePermission(catalog.RolesView))

	// Role management - company context required for evaluation
	roles := api.Group("/roles")
	roles.Use(middleware.RequireCompanyContext)
	roles.GET("", roleHandler.ListRoles, middleware.RequirePermission(catalog.RolesView))
	roles.GET("/templates", roleHandler.ListTemplates, middleware.RequirePermission(catalog.RolesView))
	roles.POST("/templates/:id", roleHandler.CreateFromTemplate, middleware.RequirePermission(catalog.RolesCreate))
	roles.GET("/:id", roleHandler.GetRole, middleware.RequirePermission(catalog.RolesView))
	roles.POST("", roleHandler.CreateRole, middleware.RequirePermission(catalog.RolesCreate))
	roles.PATCH("/:id", roleHandler.UpdateRole, middleware.RequirePermission(catalog.RolesEdit))
	roles.DELETE("/:id", roleHandler.DeleteRole, middleware.RequirePermission(catalog.RolesDelete))
	roles.POST("/:id/validate", roleHandler.ValidateRole, middleware.RequirePermission(catalog.RolesView))
	roles.POST("/:id/assign", roleHandler.AssignRole, middleware.RequirePermission(catalog.RolesEdit))
	roles.DELETE("/:id/assign/:user_id", roleHandler.UnassignRole, middleware.RequirePermission(catalog.RolesEdit))

	// Plans - catalog is readable with plans:view, administration needs plans:admin
	plans := api.Group("/plans")
	plans.GET("", planHandler.ListPlans, middleware.RequirePermission(catalog.PlansView))
	plans.GET("/:id", planHandler.GetPlan, middleware.RequirePermission(catalog.PlansView))
	plans.POST("", planHandler.CreatePlan, middleware.RequirePermission(catalog.PlansAdmin))
	plans.PATCH("/:id", planHandler.UpdatePlan, middleware.RequirePermission(catalog.PlansAdmin))
	plans.DELETE("/:id", planHandler.DeletePlan, middleware.RequirePermission(catalog.PlansAdmin))
	plans.POST("/validate", planHandler.ValidateSelection, middleware.RequirePermission(catalog.PlansManage))
	plans.POST("/select", planHandler.SelectPlan, middleware.RequirePermission(catalog.PlansManage))

	// Entitlements for the resolved company context
	entGroup := api.Group("/entitlements")
	entGroup.Use(middleware.RequireCompanyContext)
	entGroup.GET("", planHandler.CurrentEntitlements)

	// Embedded dashboard SSO
	api.GET("/dashboard/token", dashHandler.GuestToken)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
