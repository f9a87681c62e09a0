package database

import (
	"context"

	"gorm.io/gorm"

	"grocery_store/model"
	"grocery_store/service"
)

type ProductStore struct {
	db *gorm.DB
}

func NewProductStore(db *gorm.DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) FindByIDs(ctx context.Context, ids []uint) (map[uint]model.Product, error) {
	out := make(map[uint]model.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []model.Product
	if err := conn(ctx, s.db).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

// DecrementStock is a single conditional UPDATE; the row is only touched when enough stock is left.
func (s *ProductStore) DecrementStock(ctx context.Context, productID uint, qty int) (bool, error) {
	res := conn(ctx, s.db).Model(&model.Product{}).
		Where("id = ? AND is_active = ? AND stock >= ?", productID, true, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *ProductStore) IncrementStock(ctx context.Context, productID uint, qty int) error {
	res := conn(ctx, s.db).Model(&model.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return service.ErrRecordNotFound
	}
	return nil
}
