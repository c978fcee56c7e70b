package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RaikyD/order-lifecycle-service/internal/domain"
)

// MemoryRepository keeps orders in process. It backs STORE_DRIVER=memory
// and the service tests. An order code belongs to the first checkout that
// inserted it.
type MemoryRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Order
	order []string
	now   func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID: make(map[string]*domain.Order),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRepository) InsertMany(ctx context.Context, orders []domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(orders) == 0 {
		return nil
	}
	code := orders[0].OrderCode
	for _, existing := range r.byID {
		if existing.OrderCode == code {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderCode, code)
		}
	}

	seen := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		if _, ok := r.byID[o.ID]; ok {
			return fmt.Errorf("order %s already stored", o.ID)
		}
		if o.OrderCode != code {
			return fmt.Errorf("checkout mixes order codes %s and %s", code, o.OrderCode)
		}
		if _, ok := seen[o.OwnerID]; ok {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderCode, code)
		}
		seen[o.OwnerID] = struct{}{}
	}

	for _, o := range orders {
		r.byID[o.ID] = cloneOrder(&o)
		r.order = append(r.order, o.ID)
	}
	return nil
}

func (r *MemoryRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return cloneOrder(o), nil
}

func (r *MemoryRepository) Find(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Order
	for _, id := range r.order {
		o := r.byID[id]
		if !filter.Matches(o) {
			continue
		}
		out = append(out, *cloneOrder(o))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepository) Transition(ctx context.Context, id string, from []domain.Status, to domain.Status, patch domain.Patch) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.byID[id]
	if !ok || !domain.ContainsStatus(from, o.Status) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStatusConflict, id)
	}

	o.Status = to
	if patch.PaymentID != "" {
		o.PaymentID = patch.PaymentID
	}
	if patch.PaymentMethod != "" {
		o.PaymentMethod = patch.PaymentMethod
	}
	if patch.CancelReason != "" {
		o.CancelReason = patch.CancelReason
	}
	o.UpdatedAt = r.now()
	return cloneOrder(o), nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.Item(nil), o.Items...)
	return &c
}
