package main

import (
	"log"
	"os"

	"coach-membership-be/internal/model"
	"coach-membership-be/pkg/database"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// Load Environment Variables
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	color.Cyan("Seeding Membership Plans...")

	plans := []model.MembershipPlan{
		{Name: "Monthly Coaching", Slug: "monthly-coaching", Description: "Full access to coaching sessions and training plans, billed monthly", Price: 199000, DurationDays: 30, IsActive: true, SortOrder: 1},
		{Name: "Quarterly Coaching", Slug: "quarterly-coaching", Description: "Three months of coaching access at a reduced rate", Price: 539000, DurationDays: 90, IsActive: true, SortOrder: 2},
		{Name: "Annual Coaching", Slug: "annual-coaching", Description: "A full year of coaching access, best value", Price: 1990000, DurationDays: 365, IsActive: true, SortOrder: 3},
	}

	for _, p := range plans {
		var existing model.MembershipPlan
		if err := db.Where("slug = ?", p.Slug).First(&existing).Error; err == nil {
			color.Yellow("Plan '%s' already exists, skipping...", p.Slug)
			continue
		}
		if err := db.Create(&p).Error; err != nil {
			color.Red("Error creating plan '%s': %v", p.Slug, err)
		} else {
			color.Green("Created plan: %s (%s)", p.Name, p.Slug)
		}
	}

	color.Cyan("Seeding Admin Account...")

	adminEmail := os.Getenv("SEED_ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@example.com"
	}
	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "changeme123"
	}

	var existing model.User
	if err := db.Where("email = ?", adminEmail).First(&existing).Error; err == nil {
		color.Yellow("Admin '%s' already exists, skipping...", adminEmail)
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal("Error: Failed to hash admin password:", err)
		}
		hashStr := string(hash)
		admin := model.User{
			Email:        adminEmail,
			PasswordHash: &hashStr,
			FullName:     "Platform Admin",
			Role:         "admin",
			Status:       "active",
		}
		if err := db.Create(&admin).Error; err != nil {
			color.Red("Error creating admin: %v", err)
		} else {
			color.Green("Created admin: %s", adminEmail)
		}
	}

	color.Cyan("Seeding completed!")
}
