package repository

import (
	"context"

	"github.com/supportdesk/supportgate/internal/model"
	"gorm.io/gorm"
)

type PostgresOrderRepo struct {
	db *gorm.DB
}

func NewPostgresOrderRepo(db *gorm.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

func (r *PostgresOrderRepo) Create(ctx context.Context, o *model.Order) error {
	return translate(r.db.WithContext(ctx).Create(o).Error)
}

func (r *PostgresOrderRepo) GetByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).First(&order, id).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r *PostgresOrderRepo) ListByUser(ctx context.Context, userID uint, skip, limit int) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Offset(skip).
		Limit(limit).
		Find(&orders).Error
	return orders, translate(err)
}

func (r *PostgresOrderRepo) Update(ctx context.Context, o *model.Order) error {
	res := r.db.WithContext(ctx).Model(o).Select("TotalAmount", "Status").Updates(o)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresOrderRepo) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Order{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
