package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/RaikyD/order-lifecycle-service/internal/domain"
	"github.com/RaikyD/order-lifecycle-service/internal/logger"
)

var (
	acceptable  = []domain.Status{domain.StatusPendingAccept}
	completable = []domain.Status{domain.StatusConfirmed, domain.StatusShipping}
	cancellable = []domain.Status{domain.StatusConfirmed}
	requested   = []domain.Status{domain.StatusRequestedCancel}
)

func soldBy(sellerID string) func(*domain.Order) bool {
	return func(o *domain.Order) bool { return o.OwnerID == sellerID }
}

func boughtBy(userID string) func(*domain.Order) bool {
	return func(o *domain.Order) bool { return o.UserID == userID }
}

// ConfirmOrder is the seller accepting a paid order.
func (s *OrdersService) ConfirmOrder(ctx context.Context, cmd domain.SellerCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	o, err := s.transition(ctx, cmd.OrderID, soldBy(cmd.SellerID), "confirm", acceptable, domain.StatusConfirmed, domain.Patch{})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventOrderConfirmed, o.ID, domain.OrderConfirmed{
		UserID:      o.UserID,
		OrderID:     o.ID,
		SellerID:    o.OwnerID,
		ConfirmedAt: o.UpdatedAt,
	})
	s.emit(ctx, domain.EventNotificationCreate, o.UserID, domain.Notification{
		UserID:  o.UserID,
		Type:    domain.NotificationOrderConfirmed,
		Title:   "Order confirmed",
		Message: fmt.Sprintf("Your order %s was confirmed by the seller", o.ID),
		OrderID: o.ID,
	})
	return o, nil
}

// RejectOrder is the seller declining a paid order.
func (s *OrdersService) RejectOrder(ctx context.Context, cmd domain.SellerCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	o, err := s.transition(ctx, cmd.OrderID, soldBy(cmd.SellerID), "reject", acceptable, domain.StatusCancelled, domain.Patch{CancelReason: cmd.Reason})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventOrderRejected, o.ID, domain.OrderRejected{
		UserID:     o.UserID,
		OrderID:    o.ID,
		SellerID:   o.OwnerID,
		Reason:     cmd.Reason,
		Items:      o.Items,
		RejectedAt: o.UpdatedAt,
	})
	s.emit(ctx, domain.EventNotificationCreate, o.UserID, domain.Notification{
		UserID:  o.UserID,
		Type:    domain.NotificationOrderRejected,
		Title:   "Order rejected",
		Message: fmt.Sprintf("Your order %s was rejected by the seller", o.ID),
		OrderID: o.ID,
	})
	return o, nil
}

// CompleteOrder marks delivery. order.completed is the only event carrying
// the order amount.
func (s *OrdersService) CompleteOrder(ctx context.Context, cmd domain.SellerCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	o, err := s.transition(ctx, cmd.OrderID, soldBy(cmd.SellerID), "complete", completable, domain.StatusDelivered, domain.Patch{})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventOrderCompleted, o.ID, domain.OrderCompleted{
		OrderID:     o.ID,
		SellerID:    o.OwnerID,
		TotalAmount: o.FinalTotal,
		Items:       o.Items,
		CompletedAt: o.UpdatedAt,
	})
	return o, nil
}

// RequestCancel is the buyer asking to cancel a confirmed order.
func (s *OrdersService) RequestCancel(ctx context.Context, cmd domain.CancelRequestCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	o, err := s.transition(ctx, cmd.OrderID, boughtBy(cmd.UserID), "request cancellation of", cancellable, domain.StatusRequestedCancel, domain.Patch{CancelReason: cmd.Reason})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventCancelRequestCreated, o.ID, cancelEvent(o, cmd.Reason))
	return o, nil
}

func (s *OrdersService) AcceptCancel(ctx context.Context, cmd domain.SellerCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	o, err := s.transition(ctx, cmd.OrderID, soldBy(cmd.SellerID), "accept cancellation of", requested, domain.StatusCancelled, domain.Patch{})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventCancelRequestSuccessed, o.ID, cancelEvent(o, o.CancelReason))
	return o, nil
}

// RejectCancel puts the order back to CONFIRMED.
func (s *OrdersService) RejectCancel(ctx context.Context, cmd domain.SellerCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	o, err := s.transition(ctx, cmd.OrderID, soldBy(cmd.SellerID), "reject cancellation of", requested, domain.StatusConfirmed, domain.Patch{})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, domain.EventCancelRequestFailed, o.ID, cancelEvent(o, cmd.Reason))
	return o, nil
}

func cancelEvent(o *domain.Order, reason string) domain.CancelRequestEvent {
	return domain.CancelRequestEvent{
		OrderID:  o.ID,
		UserID:   o.UserID,
		SellerID: o.OwnerID,
		Reason:   reason,
		At:       o.UpdatedAt,
	}
}

// transition loads the order, checks ownership and the current status, then
// applies a guarded update. Losing a race reports the status that won.
func (s *OrdersService) transition(
	ctx context.Context,
	id string,
	owns func(*domain.Order) bool,
	action string,
	from []domain.Status,
	to domain.Status,
	patch domain.Patch,
) (*domain.Order, error) {
	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !owns(o) {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	if !domain.ContainsStatus(from, o.Status) {
		return nil, invalidState(o, action)
	}

	updated, err := s.store.Transition(ctx, id, from, to, patch)
	if errors.Is(err, domain.ErrStatusConflict) {
		current, ferr := s.store.FindByID(ctx, id)
		if ferr != nil {
			return nil, err
		}
		return nil, invalidState(current, action)
	}
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", id, err)
	}

	logger.Info("order transitioned", "orderId", id, "from", o.Status, "to", to)
	return updated, nil
}

func invalidState(o *domain.Order, action string) error {
	return fmt.Errorf("%w: cannot %s order %s in status %s", domain.ErrInvalidState, action, o.ID, o.Status)
}
