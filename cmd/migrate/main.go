package main

import (
	"log"
	"os"

	"coach-membership-be/internal/model"
	"coach-membership-be/pkg/database"

	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	// 2. Connect to Database using existing GORM helpers
	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Println("Starting GORM Migration...")

	// 3. Pre-Migration: Extensions (Things GORM AutoMigrate doesn't do)
	log.Println("Step 1: Setting up Extensions...")

	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
	}

	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	// 4. AutoMigrate All Models
	log.Println("Step 2: Running AutoMigrate...")

	models := []interface{}{
		&model.User{},
		&model.MembershipPlan{},
		&model.Payment{},
		&model.UserMembership{},
		&model.CancellationRequest{},
		&model.AdminActionLog{},
		&model.Notification{},
	}

	if err := db.AutoMigrate(models...); err != nil {
		log.Fatal("Error: AutoMigrate failed:", err)
	}

	// 5. Post-Migration: Partial unique indexes. These are the write-time
	// enforcement of the workflow invariants; AutoMigrate cannot express
	// the WHERE clause.
	log.Println("Step 3: Creating partial unique indexes...")

	indexSQL := []string{
		// One live membership per user.
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_user_memberships_one_active
		 ON user_memberships (user_id)
		 WHERE status IN ('active', 'pending_cancellation');`,

		// One outstanding cancellation request per (user, membership).
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_cancellation_requests_one_pending
		 ON cancellation_requests (user_id, membership_id)
		 WHERE status = 'pending';`,
	}

	for _, sql := range indexSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Fatal("Error: Failed to create index:", err)
		}
	}

	log.Println("Migration completed successfully")
}
