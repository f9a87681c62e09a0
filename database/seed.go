package database

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"grocery_store/constants"
	"grocery_store/helper"
	"grocery_store/model"
)

const seedPassword = "123456gs"

// SeedData creates the demo accounts and catalog if they are missing. It is safe to run on every start.
func SeedData(db *gorm.DB, logger *zap.Logger) {
	hash, err := helper.HashPassword(seedPassword)
	if err != nil {
		logger.Error("failed to hash seed password", zap.Error(err))
		return
	}

	users := []model.User{
		{Name: "Store Admin", Email: "admin@freshcart.local", Role: constants.ROLE_ADMIN, PasswordHash: hash},
		{Name: "Demo Customer", Email: "customer@freshcart.local", Role: constants.ROLE_USER, PasswordHash: hash},
	}
	for _, user := range users {
		if err := db.Where(model.User{Email: user.Email}).FirstOrCreate(&user).Error; err != nil {
			logger.Warn("failed to seed user", zap.String("email", user.Email), zap.Error(err))
		}
	}

	products := []model.Product{
		{Name: "Alphonso Mango (1 kg)", Price: 349, Stock: 40, IsActive: true},
		{Name: "Basmati Rice (5 kg)", Price: 625, Stock: 25, IsActive: true},
		{Name: "Toned Milk (1 L)", Price: 56, Stock: 120, IsActive: true},
		{Name: "Brown Eggs (12 pcs)", Price: 110, Stock: 60, IsActive: true},
		{Name: "Organic Honey (500 g)", Price: 275, Stock: 0, IsActive: false},
	}
	for _, product := range products {
		var existing model.Product
		err := db.Where("name = ?", product.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("failed to look up seed product", zap.String("name", product.Name), zap.Error(err))
			continue
		}
		productSlug, err := helper.GenerateUniqueSlug(db, &model.Product{}, product.Name)
		if err != nil {
			logger.Warn("failed to seed product", zap.String("name", product.Name), zap.Error(err))
			continue
		}
		product.Slug = productSlug
		if err := db.Create(&product).Error; err != nil {
			logger.Warn("failed to seed product", zap.String("name", product.Name), zap.Error(err))
		}
	}
}
