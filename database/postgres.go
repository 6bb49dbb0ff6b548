package database

import (
	"log"
	"topper-backend/config"
	"topper-backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect() *gorm.DB {
	logLevel := logger.Warn
	if config.AppConfig.GinMode == "debug" {
		logLevel = logger.Info
	}

	var err error
	DB, err = gorm.Open(postgres.Open(config.AppConfig.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	log.Println("✅ Database connected successfully")

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	log.Println("✅ Database migrated successfully")
	return DB
}

// Migrate creates or updates every table, parents before children.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Organiser{},
		&models.Sender{},
		&models.Story{},
		&models.StorySender{},
		&models.Contribution{},
	)
}
