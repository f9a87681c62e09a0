package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"grocery_store/config"
	"grocery_store/model"
)

// ConnectDB opens the postgres pool, migrates the schema and seeds local data.
func ConnectDB(settings config.DatabaseSettings, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(settings.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info("connection opened to database", zap.String("host", settings.Host), zap.String("name", settings.Name))

	if err := Migrate(db); err != nil {
		return nil, err
	}
	logger.Info("database migrated")

	SeedData(db, logger)
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Notification{},
	); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
