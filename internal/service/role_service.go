package service

import (
	"context"
	"errors"
	"strings"

	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
	"github.com/supportdesk/supportgate/internal/repository"
)

type RoleService struct {
	roles RoleRepo
}

func NewRoleService(roles RoleRepo) *RoleService {
	return &RoleService{roles: roles}
}

func (s *RoleService) List(ctx context.Context) ([]*model.Role, error) {
	return s.roles.List(ctx)
}

func (s *RoleService) Create(ctx context.Context, req model.RoleRequest) (*model.Role, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewInvalidRequest("role name is required")
	}
	role := &model.Role{Name: name}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.New(apperrors.ErrConflict, "Role already exists", err)
		}
		return nil, err
	}
	return role, nil
}
