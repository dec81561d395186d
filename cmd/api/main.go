package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tallix-com/prodgo/internal/audit"
	"github.com/tallix-com/prodgo/internal/catalog"
	"github.com/tallix-com/prodgo/internal/config"
	"github.com/tallix-com/prodgo/internal/database"
	"github.com/tallix-com/prodgo/internal/handlers"
	"github.com/tallix-com/prodgo/internal/models"
	"github.com/tallix-com/prodgo/internal/production"
	"github.com/tallix-com/prodgo/internal/utils"
	"github.com/tallix-com/prodgo/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger(cfg.NodeEnv)

	// 2. Initialize database (detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Product{},
		&models.ProductionEntry{},
		&models.ProductionDaySnapshot{},
		&models.ProductHistory{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	if err := seedAdmin(db, cfg); err != nil {
		log.Printf("⚠️ Admin seed warning: %v\n", err)
	}

	// 4. Wire services
	hub := websocket.NewHub()
	go hub.Run()

	recorder := audit.NewRecorder(db, logger)
	prodService := production.NewService(db, logger, recorder, hub)
	catalogService := catalog.New(db)

	// 5. Set up HTTP router
	router := handlers.NewRouter(db, cfg, logger, prodService, catalogService, hub)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on port %s\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}

// seedAdmin creates the default admin account on first boot so a fresh
// embedded deployment is usable without manual SQL.
func seedAdmin(db *database.DB, cfg *config.Config) error {
	var count int64
	if err := db.Model(&models.UserAuth{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := cfg.Server.AdminPassword
	if password == "" {
		password = "changeme"
		log.Println("⚠️  ADMIN_PASSWORD not set, default admin uses 'changeme'")
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.UserAuth{
		Username: "admin",
		Email:    cfg.Server.AdminEmail,
		Password: hash,
		Name:     "Administrator",
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("✅ Default admin created (%s)", admin.Email)
	return nil
}
