package main

import (
	"context"
	"log"
	"os"
	"time"

	"callnexy/config"
	"callnexy/middleware"
	"callnexy/routes"
	"callnexy/worker"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
)

func main() {
	// Initialize logger
	logger := log.New(os.Stdout, "CALLNEXY: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Error reporting is optional, the DSN may be unset in development
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Printf("Sentry initialization failed: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Setup routes and the scheduler worker behind them
	cronController := routes.SetupRoutes(app, config.DB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional built-in trigger for deployments without an external cron
	if config.AppConfig.TickerEnabled {
		interval := time.Duration(config.AppConfig.TickerIntervalSeconds) * time.Second
		tickWorker := worker.NewTickWorker(app, cronController.HandleTick, interval,
			log.New(os.Stdout, "TICKER: ", log.LstdFlags))
		go tickWorker.Start(ctx)
	}

	// Start server
	logger.Printf("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
