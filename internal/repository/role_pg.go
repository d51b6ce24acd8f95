package repository

import (
	"context"

	"github.com/supportdesk/supportgate/internal/model"
	"gorm.io/gorm"
)

type PostgresRoleRepo struct {
	db *gorm.DB
}

func NewPostgresRoleRepo(db *gorm.DB) *PostgresRoleRepo {
	return &PostgresRoleRepo{db: db}
}

func (r *PostgresRoleRepo) List(ctx context.Context) ([]*model.Role, error) {
	var roles []*model.Role
	err := r.db.WithContext(ctx).Order("name").Find(&roles).Error
	return roles, translate(err)
}

func (r *PostgresRoleRepo) Create(ctx context.Context, role *model.Role) error {
	return translate(r.db.WithContext(ctx).Create(role).Error)
}

func (r *PostgresRoleRepo) GetOrCreate(ctx context.Context, name string) (*model.Role, error) {
	role := model.Role{Name: name}
	if err := r.db.WithContext(ctx).Where(model.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
		return nil, translate(err)
	}
	return &role, nil
}
