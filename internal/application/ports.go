package application

import (
	"context"

	"github.com/RaikyD/order-lifecycle-service/internal/domain"
)

// OrderStore persists orders. Transition is the only way status changes:
// it updates the order only while its status is one of from, and returns
// domain.ErrStatusConflict when nothing matched.
type OrderStore interface {
	InsertMany(ctx context.Context, orders []domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	Find(ctx context.Context, filter domain.Filter) ([]domain.Order, error)
	Transition(ctx context.Context, id string, from []domain.Status, to domain.Status, patch domain.Patch) (*domain.Order, error)
}

// EventEmitter publishes a JSON-encodable payload to topic.
type EventEmitter interface {
	Emit(ctx context.Context, topic, key string, payload any) error
}

// ProductLookup resolves a product, returning domain.ErrProductNotFound
// when the product service has no such id.
type ProductLookup interface {
	Lookup(ctx context.Context, productID string) (*domain.Product, error)
}
