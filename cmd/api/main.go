package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-console/config"
	"storefront-console/internal/delivery/http/middleware"
	v1 "storefront-console/internal/delivery/http/v1"
	"storefront-console/internal/domain"
	"storefront-console/internal/infrastructure/backend"
	"storefront-console/internal/infrastructure/cache"
	"storefront-console/internal/infrastructure/llm"
	"storefront-console/internal/repository/memory"
	"storefront-console/internal/repository/postgres"
	"storefront-console/internal/session"
	"storefront-console/internal/usecase"
	"storefront-console/pkg/logger"
	"storefront-console/pkg/storage"
	"storefront-console/pkg/telemetry"
	"storefront-console/pkg/utils"

	"github.com/NYTimes/gziphandler"
	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	serviceName    = "storefront-console"
	serviceVersion = "1.0.0"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.Env, cfg.LogLevel)
	log := logger.Get()
	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, cfg.OTLPEndpoint, serviceName, serviceVersion)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracer")
	}

	// --- Upstream backend ---
	api := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendURL,
		Timeout: cfg.BackendTimeout,
	})

	// --- Caches ---
	// Default expiration 30m, cleanup every 10m
	catalogCache := cache.NewMemoryCache(30*time.Minute, 10*time.Minute)
	sessionCache := cache.NewMemoryCache(cfg.SessionTTL, 5*time.Minute)

	// --- Cart snapshots: postgres when configured, memory otherwise ---
	healthChecks := map[string]v1.Pinger{"backend": api}
	var carts domain.CartSnapshotRepository
	if cfg.DBUrl != "" {
		pool, err := postgres.NewPgxPool(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run migrations")
		}
		carts = postgres.NewCartSnapshotRepository(pool)
		healthChecks["database"] = pool
		log.Info().Msg("Cart snapshots stored in PostgreSQL")
	} else {
		carts = memory.NewCartSnapshotRepository(cache.NewMemoryCache(cfg.SessionTTL, 10*time.Minute))
		log.Warn().Msg("DB_DSN not set, cart snapshots kept in memory")
	}

	// --- Export storage (R2) ---
	var uploader usecase.ExportUploader
	r2Config := storage.R2Config{
		AccountID:     cfg.R2AccountID,
		AccessKey:     cfg.R2AccessKeyID,
		SecretKey:     cfg.R2AccessKeySecret,
		BucketName:    cfg.R2BucketName,
		PublicURL:     cfg.R2PublicURL,
		UploadTimeout: cfg.R2UploadTimeout,
		LinkExpiry:    cfg.R2LinkExpiry,
	}
	if r2Config.Enabled() {
		r2Storage, err := storage.NewR2Storage(ctx, r2Config)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize R2 Storage")
		}
		uploader = r2Storage
	} else {
		log.Info().Msg("R2 not configured, order exports are streamed")
	}

	// --- Chat model ---
	var model domain.ChatModel
	if gemini := llm.NewGeminiClient(cfg.LLMAPIKey, cfg.LLMEndpoint, cfg.LLMTimeout); gemini != nil {
		model = gemini
	}

	// --- Sessions ---
	tokens := utils.NewTokenParser(cfg.JWTSecret)
	sessions := session.NewRegistry(sessionCache, session.Dependencies{
		Accounts:  api,
		Carts:     carts,
		Tokens:    tokens,
		WithToken: backend.ContextWithToken,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(200*time.Millisecond),
				backoff.WithMaxElapsedTime(5*time.Second),
			)
			return backoff.WithMaxRetries(b, 2)
		},
	}, cfg.SessionTTL)

	// --- Use cases ---
	lifecycleUC := usecase.NewOrderLifecycleUsecase(api, cfg.TransitionTimeout)
	trackingUC := usecase.NewOrderTrackingUsecase(api, lifecycleUC)
	adminOrderUC := usecase.NewAdminOrderUsecase(api, lifecycleUC, uploader, cfg.ExportRowCap)
	catalogUC := usecase.NewCatalogUsecase(api, api, catalogCache, cfg)
	cartUC := usecase.NewCartUsecase(catalogUC, api, cfg.MaxCartQuantity)
	authUC := usecase.NewAuthUsecase(api, sessions)
	userUC := usecase.NewUserUsecase(api)
	accessUC := usecase.NewAccessUsecase(api, api, catalogCache)
	chatUC := usecase.NewChatUsecase(model, catalogUC)

	// --- Handlers ---
	authHandler := v1.NewAuthHandler(authUC, userUC, sessions, cfg.Env == "production", cfg.SessionTTL)
	catalogHandler := v1.NewCatalogHandler(catalogUC)
	adminCatalogHandler := v1.NewAdminCatalogHandler(catalogUC, sessions, cfg.MaxUploadSizeMB)
	cartHandler := v1.NewCartHandler(cartUC, sessions)
	orderHandler := v1.NewOrderHandler(trackingUC, sessions)
	adminOrderHandler := v1.NewAdminOrderHandler(adminOrderUC, sessions)
	adminUserHandler := v1.NewAdminUserHandler(userUC, accessUC, sessions)
	chatHandler := v1.NewChatHandler(chatUC)
	healthHandler := v1.NewHealthHandler(healthChecks)

	// --- Routes ---
	mux := http.NewServeMux()
	authenticate := middleware.NewAuthMiddleware(sessions)
	requireAdmin := middleware.NewAdminMiddleware(cfg.AdminRoleName)

	public := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, telemetry.WithHTTPRoute(h))
	}
	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authenticate(telemetry.WithHTTPRoute(h)))
	}
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authenticate(requireAdmin(telemetry.WithHTTPRoute(h))))
	}

	// Health & metrics
	public("GET /health", healthHandler.Live)
	public("GET /health/ready", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Auth
	public("POST /api/v1/auth/login", authHandler.Login)
	public("POST /api/v1/auth/register", authHandler.Register)
	public("POST /api/v1/auth/forgot-password", authHandler.ForgotPassword)
	public("POST /api/v1/auth/reset-password", authHandler.ResetPassword)
	authed("POST /api/v1/auth/logout", authHandler.Logout)
	authed("GET /api/v1/session", authHandler.Session)
	authed("PUT /api/v1/account", authHandler.UpdateAccount)
	authed("PATCH /api/v1/account/password", authHandler.ChangePassword)

	// Catalog (Public)
	public("GET /api/v1/products", catalogHandler.ListProducts)
	public("GET /api/v1/products/search", catalogHandler.Search)
	public("GET /api/v1/products/{id}", catalogHandler.GetProduct)
	public("GET /api/v1/categories", catalogHandler.ListCategories)
	public("GET /api/v1/categories/tree", catalogHandler.CategoryTree)

	// Chat
	public("GET /api/v1/chat", chatHandler.Status)
	public("POST /api/v1/chat", chatHandler.Reply)

	// Cart & Checkout
	authed("GET /api/v1/cart", cartHandler.GetCart)
	authed("POST /api/v1/cart/items", cartHandler.AddItem)
	authed("PATCH /api/v1/cart/items/{id}", cartHandler.SetQuantity)
	authed("DELETE /api/v1/cart/items/{id}", cartHandler.RemoveItem)
	authed("DELETE /api/v1/cart", cartHandler.Clear)
	authed("POST /api/v1/checkout", cartHandler.Checkout)

	// Order tracking
	authed("GET /api/v1/tracking/orders", orderHandler.ListOrders)
	authed("GET /api/v1/tracking/orders/view", orderHandler.View)
	authed("DELETE /api/v1/tracking/orders", orderHandler.Unmount)
	authed("POST /api/v1/tracking/orders/{id}/{op}", orderHandler.Invoke)
	authed("GET /api/v1/orders/history", orderHandler.History)

	// Admin orders
	admin("GET /api/v1/admin/orders", adminOrderHandler.ListOrders)
	admin("GET /api/v1/admin/orders/view", adminOrderHandler.View)
	admin("GET /api/v1/admin/orders/export", adminOrderHandler.Export)
	admin("POST /api/v1/admin/orders/{id}/{op}", adminOrderHandler.Invoke)

	// Admin catalog
	admin("POST /api/v1/admin/products", adminCatalogHandler.CreateProduct)
	admin("PUT /api/v1/admin/products/{id}", adminCatalogHandler.UpdateProduct)
	admin("DELETE /api/v1/admin/products/{id}", adminCatalogHandler.DeleteProduct)
	admin("POST /api/v1/admin/categories", adminCatalogHandler.CreateCategory)
	admin("PUT /api/v1/admin/categories/{id}", adminCatalogHandler.UpdateCategory)
	admin("DELETE /api/v1/admin/categories/{id}", adminCatalogHandler.DeleteCategory)
	admin("POST /api/v1/admin/files/upload", adminCatalogHandler.UploadFile)

	// Admin users, RBAC, dashboard
	admin("GET /api/v1/admin/users", adminUserHandler.ListUsers)
	admin("POST /api/v1/admin/users", adminUserHandler.CreateUser)
	admin("POST /api/v1/admin/users/bulk", adminUserHandler.BulkCreateUsers)
	admin("PUT /api/v1/admin/users/{id}", adminUserHandler.UpdateUser)
	admin("DELETE /api/v1/admin/users/{id}", adminUserHandler.DeleteUser)
	admin("GET /api/v1/admin/permissions", adminUserHandler.ListPermissions)
	admin("POST /api/v1/admin/permissions", adminUserHandler.CreatePermission)
	admin("PUT /api/v1/admin/permissions/{id}", adminUserHandler.UpdatePermission)
	admin("DELETE /api/v1/admin/permissions/{id}", adminUserHandler.DeletePermission)
	admin("GET /api/v1/admin/roles", adminUserHandler.ListRoles)
	admin("PUT /api/v1/admin/roles/{id}/permissions/{permissionId}", adminUserHandler.SetRolePermission)
	admin("DELETE /api/v1/admin/roles/{id}/permissions/{permissionId}", adminUserHandler.SetRolePermission)
	admin("GET /api/v1/admin/dashboard", adminUserHandler.Dashboard)

	rateLimiter := middleware.NewRateLimiter(
		ctx,
		rate.Limit(cfg.RateLimitRPS),
		cfg.RateLimitBurst,
		time.Minute,   // cleanup period
		3*time.Minute, // visitor TTL
	)

	handler := middleware.NewCORSMiddleware(cfg)(mux)
	handler = rateLimiter.Middleware()(handler)
	handler = middleware.NewRequestLogger(tokens)(handler)
	handler = gziphandler.GzipHandler(handler)
	handler = otelhttp.NewHandler(handler, serviceName, otelhttp.WithSpanNameFormatter(telemetry.SpanName))

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Exports and chat replies can take a while.
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()
	logger.ServiceStart(serviceName, serviceVersion, cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")
	rateLimiter.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown failed")
	}

	logger.ServiceStop(serviceName)
}
