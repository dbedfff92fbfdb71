package seeders

import (
	"log"

	"schedboard/database"
	"schedboard/models"

	"golang.org/x/crypto/bcrypt"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedUsers()

	log.Println("Database seeding completed successfully!")
}

// SeedUsers creates the bootstrap administrator accounts
func SeedUsers() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		log.Println("Failed to hash seed password:", err)
		return
	}

	users := []models.User{
		{Username: "superadmin", Password: string(hash), Role: "superadmin", Active: true},
		{Username: "admin", Password: string(hash), Role: "admin", Regional: "NORTE", Active: true},
	}

	if err := database.DB.Create(&users).Error; err != nil {
		log.Println("Failed to seed users:", err)
		return
	}
	log.Printf("Seeded %d users (default password must be changed)", len(users))
}
