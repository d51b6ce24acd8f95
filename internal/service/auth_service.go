package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/supportdesk/supportgate/internal/config"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
	"github.com/supportdesk/supportgate/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// AuthService checks credentials and issues access tokens. Configured
// operators are checked first, then users by email.
type AuthService struct {
	operators map[string]string
	users     UserRepo
	tokens    *TokenService
}

func NewAuthService(operators []config.OperatorConfig, users UserRepo, tokens *TokenService) *AuthService {
	ops := make(map[string]string, len(operators))
	for _, op := range operators {
		if name := strings.TrimSpace(op.Username); name != "" {
			ops[name] = op.Password
		}
	}
	return &AuthService{operators: ops, users: users, tokens: tokens}
}

func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperrors.NewAuthFailed("Incorrect username or password")
	}

	if expected, ok := s.operators[username]; ok {
		if subtle.ConstantTimeCompare([]byte(expected), []byte(password)) == 1 {
			return &model.Principal{Username: username}, nil
		}
		return nil, apperrors.NewAuthFailed("Incorrect username or password")
	}

	if s.users == nil {
		return nil, apperrors.NewAuthFailed("Incorrect username or password")
	}
	user, err := s.users.GetByEmail(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewAuthFailed("Incorrect username or password")
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		return nil, apperrors.NewAuthFailed("Incorrect username or password")
	}
	return &model.Principal{Username: user.Email}, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	principal, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Sign(principal.Username)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrInternal, "failed to generate token", err)
	}
	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}
