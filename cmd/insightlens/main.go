package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"insightlens/internal/api"
	"insightlens/internal/api/handlers"
	"insightlens/internal/repository"
	"insightlens/internal/service"
	"insightlens/pkg/auth"
	"insightlens/pkg/config"
	"insightlens/pkg/logger"
	"insightlens/pkg/postgres"

	"go.uber.org/zap"
)

// @title InsightLens API
// @version 1.0
// @description Role-scoped customer satisfaction analytics over product reviews

// @contact.name API Support
// @contact.email support@insightlens.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting InsightLens service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := repository.InitSchema(ctx, db); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	assignmentRepo := repository.NewAssignmentRepository(db, appLogger)
	reviewRepo := repository.NewReviewRepository(db, appLogger)
	analyticsRepo := repository.NewAnalyticsRepository(db, appLogger)
	conversationRepo := repository.NewConversationRepository(db, appLogger)
	reportRepo := repository.NewReportRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)
	scopeService := service.NewScopeService(assignmentRepo, appLogger)
	metricsService := service.NewMetricsService(analyticsRepo, reviewRepo, appLogger)
	toolService := service.NewToolService(metricsService, appLogger)
	adminService := service.NewAdminService(userRepo, assignmentRepo, appLogger)

	llmService, err := service.NewGeminiService(ctx, cfg.Gemini, toolService.Declarations(), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Gemini service", zap.Error(err))
	}
	defer llmService.Close()

	chatService := service.NewChatService(
		llmService, toolService, scopeService, metricsService, conversationRepo, cfg.Gemini, appLogger)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	analyticsHandler := handlers.NewAnalyticsHandler(metricsService, scopeService, chatService, appLogger)
	chatHandler := handlers.NewChatHandler(chatService, appLogger)
	reportHandler := handlers.NewReportHandler(reportRepo, appLogger)
	adminHandler := handlers.NewAdminHandler(adminService, appLogger)

	// Setup router
	app := api.SetupRouter(authHandler, analyticsHandler, chatHandler, reportHandler, adminHandler, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
