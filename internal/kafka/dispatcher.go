package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/RaikyD/order-lifecycle-service/internal/application"
	"github.com/RaikyD/order-lifecycle-service/internal/domain"
)

type handlerFunc func(ctx context.Context, value []byte) (any, error)

// Dispatcher routes an inbound topic to the service operation it drives.
// Payloads are decoded into typed commands here and validated by the service.
type Dispatcher struct {
	svc      *application.OrdersService
	handlers map[string]handlerFunc
}

func NewDispatcher(svc *application.OrdersService) *Dispatcher {
	d := &Dispatcher{svc: svc}
	d.handlers = map[string]handlerFunc{
		domain.TopicOrderCreate:         d.createOrders,
		domain.TopicPaymentSuccess:      d.paymentSuccess,
		domain.TopicPaymentFailed:       d.paymentFailed,
		domain.TopicBankingRequested:    d.bankingRequested,
		domain.TopicOrderConfirm:        seller(svc.ConfirmOrder),
		domain.TopicOrderReject:         seller(svc.RejectOrder),
		domain.TopicOrderComplete:       seller(svc.CompleteOrder),
		domain.TopicOrderTimeout:        d.timeout,
		domain.TopicCancelRequestCreate: d.cancelRequest,
		domain.TopicCancelRequestAccept: seller(svc.AcceptCancel),
		domain.TopicCancelRequestReject: seller(svc.RejectCancel),
	}
	return d
}

// Topics lists every topic the dispatcher handles.
func (d *Dispatcher) Topics() []string {
	topics := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// Handle runs the operation for topic. The returned error is nil on success;
// the Result is what a requester would get back on its reply topic.
func (d *Dispatcher) Handle(ctx context.Context, topic string, value []byte) (application.Result, error) {
	h, ok := d.handlers[topic]
	if !ok {
		err := fmt.Errorf("%w: no handler for topic %s", domain.ErrValidation, topic)
		return application.Fail(err), err
	}
	data, err := h(ctx, value)
	if err != nil {
		return application.Fail(err), err
	}
	return application.OK(data), nil
}

func decode[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("%w: invalid json: %v", domain.ErrValidation, err)
	}
	return v, nil
}

func seller(op func(context.Context, domain.SellerCommand) (*domain.Order, error)) handlerFunc {
	return func(ctx context.Context, value []byte) (any, error) {
		cmd, err := decode[domain.SellerCommand](value)
		if err != nil {
			return nil, err
		}
		return op(ctx, cmd)
	}
}

func (d *Dispatcher) createOrders(ctx context.Context, value []byte) (any, error) {
	cmd, err := decode[domain.CreateOrdersCommand](value)
	if err != nil {
		return nil, err
	}
	return d.svc.CreateOrders(ctx, cmd)
}

func (d *Dispatcher) paymentSuccess(ctx context.Context, value []byte) (any, error) {
	cmd, err := decode[domain.PaymentSuccessCommand](value)
	if err != nil {
		return nil, err
	}
	moved, err := d.svc.ApplyPaymentResult(ctx, cmd)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(moved))
	for i, o := range moved {
		ids[i] = o.ID
	}
	return map[string]any{"orderIds": ids}, nil
}

func (d *Dispatcher) paymentFailed(ctx context.Context, value []byte) (any, error) {
	cmd, err := decode[domain.PaymentFailedCommand](value)
	if err != nil {
		return nil, err
	}
	n, err := d.svc.ApplyPaymentFailure(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return map[string]int{"failed": n}, nil
}

func (d *Dispatcher) bankingRequested(ctx context.Context, value []byte) (any, error) {
	cmd, err := decode[domain.BankingRequestCommand](value)
	if err != nil {
		return nil, err
	}
	return d.svc.RequestBankingPayment(ctx, cmd)
}

func (d *Dispatcher) timeout(ctx context.Context, value []byte) (any, error) {
	cmd, err := decode[domain.TimeoutCommand](value)
	if err != nil {
		return nil, err
	}
	n, err := d.svc.CancelExpired(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return map[string]int{"cancelled": n}, nil
}

func (d *Dispatcher) cancelRequest(ctx context.Context, value []byte) (any, error) {
	cmd, err := decode[domain.CancelRequestCommand](value)
	if err != nil {
		return nil, err
	}
	return d.svc.RequestCancel(ctx, cmd)
}
