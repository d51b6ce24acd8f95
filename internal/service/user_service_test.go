package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
	"github.com/supportdesk/supportgate/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

func requireAppError(t *testing.T, err error, want apperrors.ErrorType) {
	t.Helper()
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, want, appErr.Type)
}

func TestUserServiceCreateHashesPasswordAndAssignsRole(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewUserService(store.Users(), store.Roles())

	user, err := svc.Create(ctx, model.UserCreateRequest{
		Name: "Alice", Email: "alice@example.com", Password: "s3cret", Role: "support",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("s3cret")))
	assert.Equal(t, []string{"support"}, user.RoleNames())

	_, err = svc.Create(ctx, model.UserCreateRequest{Name: "A2", Email: "alice@example.com", Password: "x"})
	requireAppError(t, err, apperrors.ErrConflict)
}

func TestUserServiceUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewUserService(store.Users(), store.Roles())

	alice, err := svc.Create(ctx, model.UserCreateRequest{Name: "Alice", Email: "alice@example.com", Password: "x"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.UserCreateRequest{Name: "Bob", Email: "bob@example.com", Password: "x"})
	require.NoError(t, err)

	name := "Alice Liddell"
	updated, err := svc.Update(ctx, alice.ID, model.UserUpdateRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.Name)

	taken := "bob@example.com"
	_, err = svc.Update(ctx, alice.ID, model.UserUpdateRequest{Email: &taken})
	requireAppError(t, err, apperrors.ErrConflict)

	_, err = svc.Update(ctx, 404, model.UserUpdateRequest{Name: &name})
	requireAppError(t, err, apperrors.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, alice.ID))
	_, err = svc.Get(ctx, alice.ID)
	requireAppError(t, err, apperrors.ErrNotFound)
	requireAppError(t, svc.Delete(ctx, alice.ID), apperrors.ErrNotFound)
}

func TestUserServiceListClampsPaging(t *testing.T) {
	skip, limit := clampPage(-5, 0)
	assert.Equal(t, 0, skip)
	assert.Equal(t, defaultPageLimit, limit)

	_, limit = clampPage(0, 5000)
	assert.Equal(t, maxPageLimit, limit)
}

func TestUserServiceSetRolesDeduplicates(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := NewUserService(store.Users(), store.Roles())

	u, err := svc.Create(ctx, model.UserCreateRequest{Name: "Eve", Email: "eve@example.com", Password: "x"})
	require.NoError(t, err)

	u, err = svc.SetRoles(ctx, u.ID, []string{"admin", " admin ", "", "billing"})
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "billing"}, u.RoleNames())

	_, err = svc.SetRoles(ctx, 999, []string{"admin"})
	requireAppError(t, err, apperrors.ErrNotFound)
}

func TestProfileServiceUpsert(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	users := NewUserService(store.Users(), store.Roles())
	svc := NewProfileService(store.Users(), store.Profiles())

	u, err := users.Create(ctx, model.UserCreateRequest{Name: "Ann", Email: "ann@example.com", Password: "x"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, u.ID)
	requireAppError(t, err, apperrors.ErrNotFound)

	p, err := svc.Upsert(ctx, u.ID, model.ProfileRequest{Bio: "hello"})
	require.NoError(t, err)
	assert.Equal(t, u.ID, p.UserID)

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio)

	_, err = svc.Upsert(ctx, 999, model.ProfileRequest{Bio: "x"})
	requireAppError(t, err, apperrors.ErrNotFound)
}

func TestOrderServiceValidatesAmounts(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	users := NewUserService(store.Users(), store.Roles())
	svc := NewOrderService(store.Users(), store.Orders())

	u, err := users.Create(ctx, model.UserCreateRequest{Name: "Oz", Email: "oz@example.com", Password: "x"})
	require.NoError(t, err)

	order, err := svc.Create(ctx, model.OrderCreateRequest{UserID: u.ID, TotalAmount: decimal.RequireFromString("12.345")})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Equal(t, "12.35", order.TotalAmount.StringFixed(2))

	_, err = svc.Create(ctx, model.OrderCreateRequest{UserID: u.ID, TotalAmount: decimal.NewFromInt(-1)})
	requireAppError(t, err, apperrors.ErrInvalidRequest)

	_, err = svc.Create(ctx, model.OrderCreateRequest{UserID: u.ID, TotalAmount: decimal.RequireFromString("100000000")})
	requireAppError(t, err, apperrors.ErrInvalidRequest)

	_, err = svc.Create(ctx, model.OrderCreateRequest{UserID: 999, TotalAmount: decimal.NewFromInt(1)})
	requireAppError(t, err, apperrors.ErrNotFound)

	shipped := model.OrderShipped
	updated, err := svc.Update(ctx, order.ID, model.OrderUpdateRequest{Status: &shipped})
	require.NoError(t, err)
	assert.Equal(t, model.OrderShipped, updated.Status)

	list, err := svc.ListByUser(ctx, u.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, svc.Delete(ctx, order.ID))
	requireAppError(t, svc.Delete(ctx, order.ID), apperrors.ErrNotFound)
}

func TestRoleServiceRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := NewRoleService(repository.NewMemoryStore().Roles())

	_, err := svc.Create(ctx, model.RoleRequest{Name: "admin"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, model.RoleRequest{Name: "admin"})
	requireAppError(t, err, apperrors.ErrConflict)

	roles, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
}
