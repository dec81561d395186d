package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tallix-com/prodgo/internal/config"
	"github.com/tallix-com/prodgo/internal/database"
	"github.com/tallix-com/prodgo/internal/models"
	"github.com/tallix-com/prodgo/internal/production"
)

func main() {
	fmt.Println("🌱 prodgo Demo Data Seeder")

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
	err = db.AutoMigrate(
		&models.UserAuth{},
		&models.Product{},
		&models.ProductionEntry{},
		&models.ProductionDaySnapshot{},
		&models.ProductHistory{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")

	// Check if data already exists
	var productCount int64
	db.Model(&models.Product{}).Count(&productCount)
	if productCount > 0 {
		fmt.Printf("⚠️  Database already has %d products. Clear it first? (y/N): ", productCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}
		db.Exec("TRUNCATE production_entries, production_day_snapshots, product_history, audit_logs, products CASCADE")
		fmt.Println("🧹 Cleared existing data")
	}

	// Seed catalog
	products := []models.Product{
		{DefaultCode: "WID-100", Barcode: "4006381333931", Name: "Widget 100mm"},
		{DefaultCode: "WID-150", Barcode: "4006381333948", Name: "Widget 150mm"},
		{DefaultCode: "BRK-20", Barcode: "4006381333955", Name: "Bracket 20mm"},
		{DefaultCode: "BRK-40", Barcode: "4006381333962", Name: "Bracket 40mm"},
		{DefaultCode: "PLT-A4", Barcode: "4006381333979", Name: "Plate A4 steel"},
	}
	for i := range products {
		if err := db.Create(&products[i]).Error; err != nil {
			log.Fatalf("❌ Failed to seed product %s: %v", products[i].DefaultCode, err)
		}
	}
	fmt.Printf("✅ Seeded %d products\n", len(products))

	// Seed an open demo day with a few entries
	logger := config.NewLogger(cfg.NodeEnv)
	svc := production.NewService(db, logger, nil, nil)

	ctx := context.Background()
	for i, p := range products[:3] {
		_, err := svc.AddEntry(ctx, production.AddEntryInput{
			Date: time.Now(),
			Product: production.ProductRef{
				ID:          p.ID,
				Code:        p.DefaultCode,
				Description: p.Name,
			},
			Quantity: (i + 1) * 5,
			Grouping: true,
		})
		if err != nil {
			log.Fatalf("❌ Failed to seed entry for %s: %v", p.DefaultCode, err)
		}
	}
	fmt.Println("✅ Seeded 3 entries for today")
	fmt.Println("🎉 Done")
}
