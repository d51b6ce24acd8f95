package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/supportdesk/supportgate/internal/model"
	"github.com/supportdesk/supportgate/internal/pkg/apperrors"
)

// maxOrderAmount is the largest value numeric(10,2) holds.
var maxOrderAmount = decimal.RequireFromString("99999999.99")

type OrderService struct {
	users  UserRepo
	orders OrderRepo
}

func NewOrderService(users UserRepo, orders OrderRepo) *OrderService {
	return &OrderService{users: users, orders: orders}
}

func normalizeAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() {
		return decimal.Zero, apperrors.NewInvalidRequest("total_amount must not be negative")
	}
	amount = amount.Round(2)
	if amount.GreaterThan(maxOrderAmount) {
		return decimal.Zero, apperrors.NewInvalidRequest("total_amount exceeds 99999999.99")
	}
	return amount, nil
}

func (s *OrderService) Create(ctx context.Context, req model.OrderCreateRequest) (*model.Order, error) {
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return nil, notFound("User", err)
	}
	amount, err := normalizeAmount(req.TotalAmount)
	if err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = model.OrderPending
	}
	order := &model.Order{
		UserID:      req.UserID,
		TotalAmount: amount,
		Status:      status,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id uint) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFound("Order", err)
	}
	return order, nil
}

func (s *OrderService) ListByUser(ctx context.Context, userID uint, skip, limit int) ([]*model.Order, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, notFound("User", err)
	}
	skip, limit = clampPage(skip, limit)
	return s.orders.ListByUser(ctx, userID, skip, limit)
}

func (s *OrderService) Update(ctx context.Context, id uint, req model.OrderUpdateRequest) (*model.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.TotalAmount != nil {
		amount, err := normalizeAmount(*req.TotalAmount)
		if err != nil {
			return nil, err
		}
		order.TotalAmount = amount
	}
	if req.Status != nil {
		order.Status = *req.Status
	}
	if err := s.orders.Update(ctx, order); err != nil {
		return nil, notFound("Order", err)
	}
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, id uint) error {
	return notFound("Order", s.orders.Delete(ctx, id))
}
