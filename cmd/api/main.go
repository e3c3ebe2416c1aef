// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nimbushq/nimbus-backend/internal/api/handlers"
	"github.com/nimbushq/nimbus-backend/internal/api/middleware"
	"github.com/nimbushq/nimbus-backend/internal/config"
	"github.com/nimbushq/nimbus-backend/internal/cron"
	"github.com/nimbushq/nimbus-backend/internal/db"
	"github.com/nimbushq/nimbus-backend/internal/email"
	"github.com/nimbushq/nimbus-backend/internal/repository"
	"github.com/nimbushq/nimbus-backend/internal/seed"
	"github.com/nimbushq/nimbus-backend/internal/service"
	"github.com/nimbushq/nimbus-backend/internal/socket"
)

func main() {
	// ============================================
	// Load environment variables
	// ============================================
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// ============================================
	// Load configuration
	// ============================================
	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// ============================================
	// Run Database Migrations FIRST
	// ============================================
	log.Println("🔄 Running database migrations...")
	migrationsPath := "./internal/db/migrations"
	if err := db.RunMigrations(cfg.DatabaseURL, migrationsPath); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// ============================================
	// Initialize PostgreSQL
	// ============================================
	postgres, err := db.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()

	// ============================================
	// Initialize Repositories
	// ============================================
	repos := repository.NewRepositories(postgres.Pool)
	log.Println("📦 Repositories initialized")

	// ============================================
	// Initialize Redis (optional)
	// ============================================
	var redisDB *db.RedisDB
	if cfg.RedisURL != "" {
		redisDB, err = db.NewRedisDB(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Failed to connect to Redis: %v (continuing without cache)", err)
			redisDB = nil
		} else {
			defer redisDB.Close()
			log.Println("⚡ Redis cache enabled")
		}
	}

	// ============================================
	// Initialize Email Service (optional)
	// ============================================
	var emailSvc *email.Service
	if cfg.SMTPHost != "" {
		emailSvc = email.NewService(&email.Config{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			User:        cfg.SMTPUser,
			Password:    cfg.SMTPPassword,
			From:        cfg.SMTPFrom,
			FromName:    cfg.SMTPFromName,
			UseTLS:      cfg.SMTPUseTLS,
			FrontendURL: cfg.FrontendURL,
		})
		log.Println("📧 Email service initialized")
	} else {
		log.Println("⚠️  Email not configured (SMTP_HOST not set)")
	}

	// ============================================
	// Initialize WebSocket Hub
	// ============================================
	hub := socket.NewHub()
	go hub.Run()
	broadcaster := socket.NewBroadcaster(hub)
	wsHandler := socket.NewHandler(hub, cfg.JWTSecret)
	log.Println("🔌 WebSocket hub initialized")

	// ============================================
	// Seed Data (for development)
	// ============================================
	if cfg.Environment != "production" {
		log.Println("🌱 Seeding development data...")
		seed.SeedData(repos)
	}

	// ============================================
	// Initialize All Services
	// ============================================
	services := service.NewServices(&service.ServiceDeps{
		Config:      cfg,
		Repos:       repos,
		EmailSvc:    emailSvc,
		Cache:       redisDB,
		Broadcaster: broadcaster,
	})
	log.Println("✨ All services initialized")

	// ============================================
	// Initialize Handlers
	// ============================================
	h := handlers.NewHandlers(services)

	// ============================================
	// Initialize Cron Scheduler
	// ============================================
	cronScheduler := cron.NewScheduler(repos, emailSvc)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	// ============================================
	// Create Gin Router
	// ============================================
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		cache := "disabled"
		if redisDB != nil {
			cache = "connected"
		}
		emailStatus := "disabled"
		if emailSvc != nil {
			emailStatus = "configured"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"database":   "connected",
			"cache":      cache,
			"websocket":  "active",
			"ws_clients": hub.ConnectedClients(),
			"email":      emailStatus,
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// ============================================
		// Public routes (no auth required)
		// ============================================
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/logout", h.Auth.Logout)
		}

		// Invite validation works for logged-out visitors on the
		// signup page too.
		api.GET("/invites/:id/validate", middleware.OptionalAuthMiddleware(services.Auth), h.Invite.Validate)

		// WebSocket route
		api.GET("/ws", wsHandler.HandleWebSocket)

		// ============================================
		// Protected routes (require auth middleware)
		// ============================================
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(services.Auth))
		{
			// User routes
			users := protected.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.PUT("/me", h.User.UpdateCurrentUser)
			}

			// Organization routes
			organizations := protected.Group("/organizations")
			{
				organizations.GET("", h.Organization.List)
				organizations.POST("", h.Organization.Create)
				organizations.GET("/:id", h.Organization.Get)
				organizations.PUT("/:id", h.Organization.Update)
				organizations.DELETE("/:id", h.Organization.Delete)

				// Onboarding
				organizations.GET("/:id/onboarding", h.Organization.Onboarding)
				organizations.POST("/:id/onboarding/complete", h.Organization.CompleteOnboarding)

				// Billing and features
				organizations.GET("/:id/billing", h.Organization.GetBilling)
				organizations.PUT("/:id/billing", h.Organization.SetBilling)
				organizations.GET("/:id/features", h.Organization.ListFeatures)

				// Members
				organizations.GET("/:id/members", h.Membership.ListByOrganization)

				// Invites
				organizations.GET("/:id/invites", h.Invite.ListByOrganization)
				organizations.GET("/:id/invites/active", h.Organization.ActiveInvites)
				organizations.POST("/:id/invites", h.Invite.Create)
				organizations.DELETE("/:id/invites/:inviteId", h.Invite.Delete)
			}

			// Membership routes
			memberships := protected.Group("/memberships")
			{
				memberships.PATCH("/:membershipId", h.Membership.UpdateLevel)
				memberships.DELETE("/:membershipId", h.Membership.Remove)
			}

			// Invite acceptance
			protected.POST("/invites/:id/accept", h.Invite.Accept)

			// Instance licenses
			protected.POST("/licenses", h.Organization.AddLicense)
		}
	}

	// ============================================
	// Start Server with Graceful Shutdown
	// ============================================
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("🚀 Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server exited")
}
