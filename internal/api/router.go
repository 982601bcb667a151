package api

import (
	"insightlens/docs"
	"insightlens/internal/api/handlers"
	"insightlens/pkg/auth"
	"insightlens/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	chatHandler *handlers.ChatHandler,
	reportHandler *handlers.ReportHandler,
	adminHandler *handlers.AdminHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo // ensure docs package is imported and init() is called
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Auth routes (public)
	authGroup := app.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)

	// Protected routes
	protected := app.Group("/", middleware.AuthMiddleware(jwtManager, appLogger))

	analytics := protected.Group("/analytics")
	analytics.Get("/nps/:product_id", analyticsHandler.ProductNPS)
	analytics.Get("/sentiment/:product_id", analyticsHandler.ProductSentiment)
	analytics.Get("/dashboard", analyticsHandler.Dashboard)
	analytics.Get("/trends", analyticsHandler.Trends)
	analytics.Post("/insights", analyticsHandler.Insights)

	chat := protected.Group("/chat")
	chat.Post("/ask", chatHandler.Ask)
	chat.Get("/history", chatHandler.History)

	reports := protected.Group("/reports")
	reports.Post("", reportHandler.Save)
	reports.Get("", reportHandler.List)

	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.Get("/users", adminHandler.ListUsers)
	admin.Post("/assign-category", adminHandler.AssignCategory)
	admin.Delete("/assign-category", adminHandler.RemoveCategory)

	return app
}
