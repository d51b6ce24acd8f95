package service

import (
	"context"

	"github.com/supportdesk/supportgate/internal/model"
)

// Repositories return repository.ErrNotFound for missing rows and
// repository.ErrDuplicate for unique-key conflicts.

type UserRepo interface {
	Create(ctx context.Context, u *model.User) error
	List(ctx context.Context, skip, limit int) ([]*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uint) error
	ReplaceRoles(ctx context.Context, userID uint, roles []model.Role) error
}

type ProfileRepo interface {
	GetByUserID(ctx context.Context, userID uint) (*model.Profile, error)
	Upsert(ctx context.Context, p *model.Profile) error
}

type OrderRepo interface {
	Create(ctx context.Context, o *model.Order) error
	GetByID(ctx context.Context, id uint) (*model.Order, error)
	ListByUser(ctx context.Context, userID uint, skip, limit int) ([]*model.Order, error)
	Update(ctx context.Context, o *model.Order) error
	Delete(ctx context.Context, id uint) error
}

type RoleRepo interface {
	List(ctx context.Context) ([]*model.Role, error)
	Create(ctx context.Context, r *model.Role) error
	GetOrCreate(ctx context.Context, name string) (*model.Role, error)
}
