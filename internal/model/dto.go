package model

import "github.com/shopspring/decimal"

type UserCreateRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role,omitempty"`
}

type UserUpdateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type UserResponse struct {
	ID    uint     `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  string   `json:"role"`
	Roles []string `json:"roles"`
}

func NewUserResponse(u *User) *UserResponse {
	if u == nil {
		return nil
	}
	resp := &UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Roles: u.RoleNames(),
	}
	if len(resp.Roles) > 0 {
		resp.Role = resp.Roles[0]
	}
	return resp
}

type ProfileRequest struct {
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url,max=255"`
}

type OrderCreateRequest struct {
	UserID      uint            `json:"user_id" binding:"required"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status" binding:"omitempty,oneof=pending paid shipped cancelled"`
}

type OrderUpdateRequest struct {
	TotalAmount *decimal.Decimal `json:"total_amount"`
	Status      *string          `json:"status" binding:"omitempty,oneof=pending paid shipped cancelled"`
}

type RoleRequest struct {
	Name string `json:"name" binding:"required,max=50"`
}

type UserRolesRequest struct {
	Roles []string `json:"roles"`
}

type TokenRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
