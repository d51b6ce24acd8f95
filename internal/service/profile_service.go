package service

import (
	"context"

	"github.com/supportdesk/supportgate/internal/model"
)

type ProfileService struct {
	users    UserRepo
	profiles ProfileRepo
}

func NewProfileService(users UserRepo, profiles ProfileRepo) *ProfileService {
	return &ProfileService{users: users, profiles: profiles}
}

func (s *ProfileService) Get(ctx context.Context, userID uint) (*model.Profile, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, notFound("User", err)
	}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, notFound("Profile", err)
	}
	return profile, nil
}

func (s *ProfileService) Upsert(ctx context.Context, userID uint, req model.ProfileRequest) (*model.Profile, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, notFound("User", err)
	}
	profile := &model.Profile{
		UserID:    userID,
		Bio:       req.Bio,
		AvatarURL: req.AvatarURL,
	}
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
