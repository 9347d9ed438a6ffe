package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mikeboe/evidence-helper/pkg/app"
	"github.com/mikeboe/evidence-helper/pkg/config"
	"github.com/mikeboe/evidence-helper/pkg/database"
	"github.com/mikeboe/evidence-helper/pkg/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}
	cfg := config.Load()
	logger := app.NewLogger(cfg, os.Stdout)

	components, err := app.NewComponents(cfg)
	if err != nil {
		logger.Error("Failed to set up components", "error", err)
		os.Exit(1)
	}
	engine, err := components.Engine(context.Background())
	if err != nil {
		logger.Error("Failed to init research engine", "error", err)
		os.Exit(1)
	}
	engine.Logger = logger

	// Database is optional; without it sessions are not recorded
	var store server.SessionStore
	if cfg.DatabaseURL != "" {
		db, err := database.NewPostgresDB(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := db.InitSchema(context.Background()); err != nil {
			logger.Error("Failed to initialize schema", "error", err)
			os.Exit(1)
		}
		store = db
	} else {
		logger.Warn("DATABASE_URL not set, session logs are disabled")
	}

	svc := server.NewService(engine, store)
	svc.Logger = logger
	handler := server.NewHandler(svc, server.NewToolset(components.Sites, components.Crawler, components.Extractor))

	// Web Server Setup
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Allow all for dev
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Mcp-Session-Id", "Mcp-Protocol-Version"},
		ExposeHeaders:    []string{"Content-Length", "Mcp-Session-Id"},
		AllowCredentials: false,
	}))

	handler.RegisterRoutes(r)

	logger.Info("Server starting", "port", cfg.Port, "sites", len(components.Sites.Domains()))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("Failed to start server", "error", err)
		os.Exit(1)
	}
}
