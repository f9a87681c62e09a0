package database

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"grocery_store/constants"
	"grocery_store/model"
	"grocery_store/service"
)

// CartStore is the read-and-clear view of cart rows the order engine needs.
type CartStore struct {
	db *gorm.DB
}

func NewCartStore(db *gorm.DB) *CartStore {
	return &CartStore{db: db}
}

func (s *CartStore) Items(ctx context.Context, userID uint) ([]model.CartItem, error) {
	var items []model.CartItem
	if err := conn(ctx, s.db).Where("user_id = ?", userID).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *CartStore) Remove(ctx context.Context, userID uint, itemIDs []uint) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := conn(ctx, s.db).
		Where("user_id = ? AND id IN ?", userID, itemIDs).
		Delete(&model.CartItem{})
	return res.RowsAffected, res.Error
}

type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) AdminIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := conn(ctx, s.db).Model(&model.User{}).
		Where("role = ?", constants.ROLE_ADMIN).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (s *UserStore) FindByID(ctx context.Context, id uint) (model.User, error) {
	var user model.User
	if err := conn(ctx, s.db).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, service.ErrRecordNotFound
		}
		return model.User{}, err
	}
	return user, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (model.User, error) {
	var user model.User
	if err := conn(ctx, s.db).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.User{}, service.ErrRecordNotFound
		}
		return model.User{}, err
	}
	return user, nil
}
