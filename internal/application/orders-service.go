package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RaikyD/order-lifecycle-service/internal/domain"
	"github.com/RaikyD/order-lifecycle-service/internal/logger"
	"github.com/google/uuid"
)

const (
	DefaultLookupTimeout = 3 * time.Second
	DefaultPaymentWindow = 15 * time.Minute

	duplicateRereads     = 3
	duplicateRereadDelay = 50 * time.Millisecond
)

var pendingPayment = []domain.Status{domain.StatusPendingPayment}

// OrdersService owns every order state change.
type OrdersService struct {
	store    OrderStore
	events   EventEmitter
	products ProductLookup

	lookupTimeout time.Duration
	paymentWindow time.Duration
	now           func() time.Time
	newID         func() string
}

type Option func(*OrdersService)

func WithClock(now func() time.Time) Option {
	return func(s *OrdersService) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *OrdersService) { s.newID = gen }
}

func WithLookupTimeout(d time.Duration) Option {
	return func(s *OrdersService) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

func WithPaymentWindow(d time.Duration) Option {
	return func(s *OrdersService) {
		if d > 0 {
			s.paymentWindow = d
		}
	}
}

func NewOrdersService(store OrderStore, events EventEmitter, products ProductLookup, opts ...Option) *OrdersService {
	s := &OrdersService{
		store:         store,
		events:        events,
		products:      products,
		lookupTimeout: DefaultLookupTimeout,
		paymentWindow: DefaultPaymentWindow,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrders persists one order per cart of a checkout. A checkout is
// keyed by its order code: repeating the command returns the orders that
// already exist. Every product is priced before anything is written, and
// the store inserts the checkout as a whole.
func (s *OrdersService) CreateOrders(ctx context.Context, cmd domain.CreateOrdersCommand) (domain.CreateResult, error) {
	if err := cmd.Validate(); err != nil {
		return domain.CreateResult{}, err
	}

	if res, ok, err := s.existingCheckout(ctx, cmd); err != nil || ok {
		return res, err
	}

	orders, products, err := s.buildOrders(ctx, cmd)
	if err != nil {
		return domain.CreateResult{}, err
	}

	if err := s.store.InsertMany(ctx, orders); err != nil {
		if errors.Is(err, domain.ErrDuplicateOrderCode) {
			return s.awaitWinner(ctx, cmd, err)
		}
		return domain.CreateResult{}, fmt.Errorf("persist orders: %w", err)
	}

	ids := make([]string, len(orders))
	var total int64
	for i, o := range orders {
		ids[i] = o.ID
		total += o.FinalTotal
	}

	logger.Info("orders created", "orderCode", cmd.OrderCode, "userId", cmd.UserID, "orderIds", ids, "total", total)

	s.emit(ctx, domain.EventOrderCreated, cmd.OrderCode, domain.OrderCreated{
		UserID:        cmd.UserID,
		OrderIDs:      ids,
		OrderCode:     cmd.OrderCode,
		PaymentMethod: cmd.PaymentMethod,
		Products:      products,
		Total:         total,
	})

	return domain.CreateResult{OrderIDs: ids}, nil
}

func (s *OrdersService) existingCheckout(ctx context.Context, cmd domain.CreateOrdersCommand) (domain.CreateResult, bool, error) {
	existing, err := s.store.Find(ctx, domain.Filter{OrderCode: cmd.OrderCode})
	if err != nil {
		return domain.CreateResult{}, false, fmt.Errorf("find orders by code: %w", err)
	}
	if len(existing) == 0 {
		return domain.CreateResult{}, false, nil
	}
	if existing[0].UserID != cmd.UserID {
		return domain.CreateResult{}, false, fmt.Errorf("%w: orderCode %s belongs to another checkout", domain.ErrValidation, cmd.OrderCode)
	}

	ids := make([]string, len(existing))
	for i, o := range existing {
		ids[i] = o.ID
	}
	logger.Info("duplicate create ignored", "orderCode", cmd.OrderCode, "orderIds", ids)
	return domain.CreateResult{Duplicate: true, OrderIDs: ids}, true, nil
}

// awaitWinner answers a create that lost the order code reservation to a
// concurrent one. The winner's orders may not be readable yet, so the lookup
// is repeated a few times before giving up with a retryable error.
func (s *OrdersService) awaitWinner(ctx context.Context, cmd domain.CreateOrdersCommand, insertErr error) (domain.CreateResult, error) {
	for attempt := 0; attempt < duplicateRereads; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.CreateResult{}, ctx.Err()
			case <-time.After(duplicateRereadDelay):
			}
		}
		if res, ok, err := s.existingCheckout(ctx, cmd); err != nil || ok {
			return res, err
		}
	}
	return domain.CreateResult{}, fmt.Errorf("persist orders: %w", insertErr)
}

func (s *OrdersService) buildOrders(ctx context.Context, cmd domain.CreateOrdersCommand) ([]domain.Order, []domain.CreatedProduct, error) {
	now := s.now()
	prices := make(map[string]int64)
	orders := make([]domain.Order, 0, len(cmd.Carts))
	var products []domain.CreatedProduct

	for _, cart := range cmd.Carts {
		items := make([]domain.Item, 0, len(cart.Products))
		for _, p := range cart.Products {
			price, ok := prices[p.ProductID]
			if !ok {
				var err error
				price, err = s.lookupPrice(ctx, p.ProductID)
				if err != nil {
					return nil, nil, err
				}
				prices[p.ProductID] = price
			}
			items = append(items, domain.Item{ProductID: p.ProductID, Quantity: p.Quantity, Price: price})
			products = append(products, domain.CreatedProduct{
				ProductID: p.ProductID,
				SellerID:  cart.SellerID,
				Quantity:  p.Quantity,
				Price:     price,
			})
		}

		totals := domain.ComputeTotals(items, cart.ShippingFee, cart.VoucherDiscount, cart.PaymentDiscount)
		orders = append(orders, domain.Order{
			ID:              s.newID(),
			OrderCode:       cmd.OrderCode,
			UserID:          cmd.UserID,
			OwnerID:         cart.SellerID,
			Items:           items,
			Subtotal:        totals.Subtotal,
			ShippingFee:     totals.ShippingFee,
			VoucherDiscount: totals.VoucherDiscount,
			PaymentDiscount: totals.PaymentDiscount,
			FinalTotal:      totals.FinalTotal,
			Status:          domain.StatusPendingPayment,
			PaymentMethod:   cmd.PaymentMethod,
			ExpiresAt:       now.Add(s.paymentWindow),
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return orders, products, nil
}

func (s *OrdersService) lookupPrice(ctx context.Context, productID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	p, err := s.products.Lookup(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return 0, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
		}
		return 0, fmt.Errorf("lookup product %s: %w", productID, err)
	}
	if p == nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	if p.Price < 0 {
		return 0, fmt.Errorf("%w: product %s has a negative price", domain.ErrValidation, productID)
	}
	return p.Price, nil
}

// ApplyPaymentResult moves paid orders to PENDING_ACCEPT. Orders already
// moved by an earlier callback are not matched again, so repeated callbacks
// produce no side effects.
func (s *OrdersService) ApplyPaymentResult(ctx context.Context, cmd domain.PaymentSuccessCommand) ([]domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	candidates, err := s.store.Find(ctx, domain.Filter{
		IDs:      cmd.OrderIDs,
		UserID:   cmd.UserID,
		Statuses: pendingPayment,
	})
	if err != nil {
		return nil, fmt.Errorf("find payable orders: %w", err)
	}

	patch := domain.Patch{PaymentID: cmd.PaymentID, PaymentMethod: cmd.PaymentMethod}
	var (
		moved   []domain.Order
		due     int64
		loopErr error
	)
	for _, o := range candidates {
		updated, err := s.store.Transition(ctx, o.ID, pendingPayment, domain.StatusPendingAccept, patch)
		if errors.Is(err, domain.ErrStatusConflict) {
			logger.Info("payment already applied", "orderId", o.ID, "paymentId", cmd.PaymentID)
			continue
		}
		if err != nil {
			loopErr = fmt.Errorf("mark order %s paid: %w", o.ID, err)
			break
		}
		moved = append(moved, *updated)
		due += updated.FinalTotal
	}

	if len(moved) == 0 {
		logger.Info("payment callback changed nothing", "paymentId", cmd.PaymentID, "orderIds", cmd.OrderIDs)
		return nil, loopErr
	}
	if cmd.PaidAmount > 0 && cmd.PaidAmount < due {
		logger.Warn("paid amount below order totals", "paymentId", cmd.PaymentID, "paid", cmd.PaidAmount, "due", due)
	}

	s.emitPaid(ctx, moved)
	return moved, loopErr
}

func (s *OrdersService) emitPaid(ctx context.Context, moved []domain.Order) {
	purchased := domain.CartClearAfterPayment{UserID: moved[0].UserID}
	for _, o := range moved {
		purchased.Sellers = append(purchased.Sellers, domain.CartClearSeller{SellerID: o.OwnerID, Items: o.Items})
	}
	s.emit(ctx, domain.EventCartClearAfterPayment, purchased.UserID, purchased)

	notified := make(map[string]struct{}, len(moved))
	for _, o := range moved {
		if _, done := notified[o.OwnerID]; done {
			continue
		}
		notified[o.OwnerID] = struct{}{}
		s.emit(ctx, domain.EventNotificationCreate, o.OwnerID, domain.Notification{
			UserID:  o.OwnerID,
			Type:    domain.NotificationNewOrder,
			Title:   "New order",
			Message: fmt.Sprintf("Order %s is paid and waiting for your confirmation", o.ID),
			OrderID: o.ID,
		})
	}
}

// ApplyPaymentFailure marks the unpaid orders of a checkout PAYMENT_FAILED.
func (s *OrdersService) ApplyPaymentFailure(ctx context.Context, cmd domain.PaymentFailedCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	candidates, err := s.store.Find(ctx, domain.Filter{
		OrderCode: cmd.OrderCode,
		UserID:    cmd.UserID,
		Statuses:  pendingPayment,
	})
	if err != nil {
		return 0, fmt.Errorf("find unpaid orders: %w", err)
	}

	patch := domain.Patch{PaymentID: cmd.PaymentID, CancelReason: cmd.Reason}
	failed := 0
	for _, o := range candidates {
		_, err := s.store.Transition(ctx, o.ID, pendingPayment, domain.StatusPaymentFailed, patch)
		if errors.Is(err, domain.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return failed, fmt.Errorf("mark order %s failed: %w", o.ID, err)
		}
		failed++
	}

	logger.Info("payment failure applied", "orderCode", cmd.OrderCode, "orders", failed, "reason", cmd.Reason)
	return failed, nil
}

// RequestBankingPayment forwards a bank transfer request for the buyer's
// unpaid orders to the payment service.
func (s *OrdersService) RequestBankingPayment(ctx context.Context, cmd domain.BankingRequestCommand) (domain.BankingPaymentRequested, error) {
	if err := cmd.Validate(); err != nil {
		return domain.BankingPaymentRequested{}, err
	}

	orders, err := s.store.Find(ctx, domain.Filter{IDs: cmd.OrderIDs, UserID: cmd.UserID, Statuses: pendingPayment})
	if err != nil {
		return domain.BankingPaymentRequested{}, fmt.Errorf("find unpaid orders: %w", err)
	}
	if len(orders) == 0 {
		return domain.BankingPaymentRequested{}, fmt.Errorf("%w: no unpaid orders for user %s", domain.ErrOrderNotFound, cmd.UserID)
	}

	req := domain.BankingPaymentRequested{UserID: cmd.UserID, OrderCode: orders[0].OrderCode}
	for _, o := range orders {
		req.OrderIDs = append(req.OrderIDs, o.ID)
		req.Total += o.FinalTotal
	}

	s.emit(ctx, domain.EventPaymentBankingRequest, req.OrderCode, req)
	return req, nil
}

// CancelExpired cancels the unpaid orders of a checkout whose payment window
// has passed. It emits nothing.
func (s *OrdersService) CancelExpired(ctx context.Context, cmd domain.TimeoutCommand) (int, error) {
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	candidates, err := s.store.Find(ctx, domain.Filter{
		IDs:       cmd.OrderIDs,
		OrderCode: cmd.OrderCode,
		UserID:    cmd.UserID,
		Statuses:  pendingPayment,
	})
	if err != nil {
		return 0, fmt.Errorf("find unpaid orders: %w", err)
	}

	now := s.now()
	cancelled := 0
	for _, o := range candidates {
		if !o.Expired(now) {
			logger.Debug("order not expired yet", "orderId", o.ID, "expiresAt", o.ExpiresAt)
			continue
		}
		_, err := s.store.Transition(ctx, o.ID, pendingPayment, domain.StatusCancelled, domain.Patch{CancelReason: "payment timeout"})
		if errors.Is(err, domain.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return cancelled, fmt.Errorf("cancel expired order %s: %w", o.ID, err)
		}
		cancelled++
	}
	return cancelled, nil
}

func (s *OrdersService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.store.FindByID(ctx, id)
}

func (s *OrdersService) ListOrders(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
	if filter.UserID == "" && filter.OwnerID == "" && filter.OrderCode == "" && len(filter.IDs) == 0 {
		return nil, fmt.Errorf("%w: userId, sellerId or orderCode is required", domain.ErrValidation)
	}
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, st)
		}
	}
	return s.store.Find(ctx, filter)
}

// emit never fails the caller: the store is the source of truth and the
// state change is already committed.
func (s *OrdersService) emit(ctx context.Context, topic, key string, payload any) {
	if err := s.events.Emit(ctx, topic, key, payload); err != nil {
		logger.Error("emit event failed", "topic", topic, "key", key, "err", err)
		return
	}
	logger.Debug("event emitted", "topic", topic, "key", key)
}
