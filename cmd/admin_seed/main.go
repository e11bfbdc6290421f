package main

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"turapay/internal/config"
	"turapay/internal/models"
	"turapay/internal/repositories"
	"turapay/internal/utils"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg := config.Load()

	adminEmail := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminPhone := strings.TrimSpace(os.Getenv("ADMIN_PHONE"))
	adminName := config.GetEnv("ADMIN_NAME", "TuraPay Admin")

	if adminEmail == "" || adminPassword == "" || adminPhone == "" {
		log.Fatal("ADMIN_EMAIL, ADMIN_PASSWORD, and ADMIN_PHONE must be set in environment")
	}
	if !utils.StrongPassword(adminPassword) {
		log.Fatal("ADMIN_PASSWORD must be at least 8 characters and contain a number and a special character")
	}

	db, err := repositories.InitDB(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer repositories.Close(db)

	ctx := context.Background()
	users := repositories.NewUserRepository(db)

	if _, err := users.GetByEmail(ctx, adminEmail); err == nil {
		log.Println("Admin user already exists")
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		log.Fatalf("Failed to look up admin user: %v", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	adminUser := &models.User{
		Email:        adminEmail,
		Password:     string(hashedPassword),
		Name:         adminName,
		Phone:        adminPhone,
		Role:         models.RoleAdmin,
		Verified:     true,
		TokenVersion: 1,
	}

	if err := users.Create(ctx, adminUser); err != nil {
		log.Fatal("Failed to create admin user:", err)
	}

	log.Println("✅ Admin account created successfully!")
}
