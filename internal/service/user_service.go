package service

import (
	"context"
	"errors"
	"strings"

	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
	"github.com/supportdesk/supportgate/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

type UserService struct {
	users UserRepo
	roles RoleRepo
}

func NewUserService(users UserRepo, roles RoleRepo) *UserService {
	return &UserService{users: users, roles: roles}
}

// clampPage normalizes skip/limit query values.
func clampPage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return skip, limit
}

func notFound(what string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(what + " not found")
	}
	return err
}

func (s *UserService) Create(ctx context.Context, req model.UserCreateRequest) (*model.User, error) {
	email := strings.TrimSpace(req.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.New(apperrors.ErrConflict, "Email already registered", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "failed to hash password", err)
	}
	user := &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: string(hash),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.New(apperrors.ErrConflict, "Email already registered", err)
		}
		return nil, err
	}

	if role := strings.TrimSpace(req.Role); role != "" {
		return s.SetRoles(ctx, user.ID, []string{role})
	}
	return s.users.GetByID(ctx, user.ID)
}

func (s *UserService) List(ctx context.Context, skip, limit int) ([]*model.User, error) {
	skip, limit = clampPage(skip, limit)
	return s.users.List(ctx, skip, limit)
}

func (s *UserService) Get(ctx context.Context, id uint) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("User", err)
	}
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id uint, req model.UserUpdateRequest) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if !strings.EqualFold(email, user.Email) {
			if other, err := s.users.GetByEmail(ctx, email); err == nil && other.ID != id {
				return nil, apperrors.New(apperrors.ErrConflict, "Email already registered", nil)
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
		}
		user.Email = email
	}
	if req.Password != nil {
		if *req.Password == "" {
			return nil, apperrors.NewInvalidRequest("password must not be empty")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperrors.New(apperrors.ErrInternal, "failed to hash password", err)
		}
		user.Password = string(hash)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFound("User", err)
	}
	if req.Role != nil {
		var roles []string
		if role := strings.TrimSpace(*req.Role); role != "" {
			roles = []string{role}
		}
		return s.SetRoles(ctx, id, roles)
	}
	return s.users.GetByID(ctx, id)
}

func (s *UserService) Delete(ctx context.Context, id uint) error {
	return notFound("User", s.users.Delete(ctx, id))
}

// SetRoles replaces the roles of a user, creating unknown role names.
func (s *UserService) SetRoles(ctx context.Context, id uint, names []string) (*model.User, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	roles := make([]model.Role, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if len(name) > 50 {
			return nil, apperrors.NewInvalidRequest("role name too long: " + name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		role, err := s.roles.GetOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *role)
	}
	if err := s.users.ReplaceRoles(ctx, id, roles); err != nil {
		return nil, notFound("User", err)
	}
	return s.users.GetByID(ctx, id)
}
