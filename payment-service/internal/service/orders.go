package service

import (
	"context"
	"fmt"

	d "github.com/fjod/canteen/payment-service/domain"
	"go.uber.org/zap"
)

// UpdateOrderStatus applies a vendor status change. Writing the current status again succeeds without a write.
func (s *PaymentServiceImpl) UpdateOrderStatus(ctx context.Context, merchantID, orderID string, status d.OrderStatus) (*d.Order, error) {
	if !status.Valid() {
		return nil, ErrBadOrderStatus
	}
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", d.ErrValidation)
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.MerchantID != merchantID {
		return nil, d.ErrOrderNotFound
	}
	if order.Status == status {
		return order, nil
	}
	if !d.CanMoveOrderTo(order.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", d.ErrIllegalOrderStatus, order.Status, status)
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, orderID, order.Status, status)
	if err != nil {
		return nil, err
	}
	s.log.Info("order status updated",
		zap.String("order_id", orderID),
		zap.String("from", order.Status.String()),
		zap.String("to", status.String()))
	return updated, nil
}

func (s *PaymentServiceImpl) ListActiveOrders(ctx context.Context, merchantID string) ([]*d.Order, error) {
	if merchantID == "" {
		return nil, fmt.Errorf("%w: merchant id is required", d.ErrValidation)
	}
	return s.repo.ListActiveOrders(ctx, merchantID)
}
