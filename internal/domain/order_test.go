package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    []Item
		shipping int64
		voucher  int64
		payment  int64
		subtotal int64
		final    int64
	}{
		{
			name:     "two lines no discounts",
			items:    []Item{{ProductID: "p1", Price: 100, Quantity: 2}, {ProductID: "p2", Price: 50, Quantity: 1}},
			subtotal: 250,
			final:    250,
		},
		{
			name:     "fee and discounts",
			items:    []Item{{ProductID: "p1", Price: 1000, Quantity: 1}},
			shipping: 30,
			voucher:  100,
			payment:  20,
			subtotal: 1000,
			final:    910,
		},
		{
			name:     "discount larger than total clamps to zero",
			items:    []Item{{ProductID: "p1", Price: 10, Quantity: 1}},
			voucher:  500,
			subtotal: 10,
			final:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(tt.items, tt.shipping, tt.voucher, tt.payment)
			assert.Equal(t, tt.subtotal, got.Subtotal)
			assert.Equal(t, tt.final, got.FinalTotal)
		})
	}
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusPendingAccept.IsValid())
	assert.False(t, Status("SHIPPED").IsValid())

	for _, s := range []Status{StatusDelivered, StatusCancelled, StatusPaymentFailed} {
		assert.True(t, s.IsTerminal(), s)
	}
	for _, s := range []Status{StatusPendingPayment, StatusPendingAccept, StatusConfirmed, StatusRequestedCancel} {
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestFilterMatches(t *testing.T) {
	o := &Order{ID: "o1", OrderCode: "1700000000000", UserID: "u1", OwnerID: "s1", Status: StatusPendingPayment}

	assert.True(t, Filter{}.Matches(o))
	assert.True(t, Filter{IDs: []string{"o2", "o1"}, Statuses: []Status{StatusPendingPayment}}.Matches(o))
	assert.False(t, Filter{OwnerID: "s2"}.Matches(o))
	assert.False(t, Filter{UserID: "u1", Statuses: []Status{StatusConfirmed}}.Matches(o))
}

func TestOrderExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	o := &Order{ExpiresAt: now.Add(15 * time.Minute)}

	assert.False(t, o.Expired(now))
	assert.True(t, o.Expired(now.Add(15*time.Minute)))
	assert.False(t, (&Order{}).Expired(now))
}

func TestCreateOrdersCommand_Validate(t *testing.T) {
	valid := CreateOrdersCommand{
		UserID:    "u1",
		OrderCode: "1700000000000",
		Carts:     []Cart{{SellerID: "s1", Products: []CartProduct{{ProductID: "p1", Quantity: 1}}}},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *CreateOrdersCommand)
	}{
		{name: "letters in code", mutate: func(c *CreateOrdersCommand) { c.OrderCode = "abc" }},
		{name: "code too short", mutate: func(c *CreateOrdersCommand) { c.OrderCode = "123" }},
		{name: "code too long", mutate: func(c *CreateOrdersCommand) { c.OrderCode = "12345678901234567" }},
		{name: "missing user", mutate: func(c *CreateOrdersCommand) { c.UserID = " " }},
		{name: "no carts", mutate: func(c *CreateOrdersCommand) { c.Carts = nil }},
		{name: "cart without seller", mutate: func(c *CreateOrdersCommand) { c.Carts[0].SellerID = "" }},
		{name: "cart without products", mutate: func(c *CreateOrdersCommand) { c.Carts[0].Products = nil }},
		{name: "zero quantity", mutate: func(c *CreateOrdersCommand) { c.Carts[0].Products[0].Quantity = 0 }},
		{name: "negative fee", mutate: func(c *CreateOrdersCommand) { c.Carts[0].ShippingFee = -1 }},
		{name: "same seller twice", mutate: func(c *CreateOrdersCommand) { c.Carts = append(c.Carts, c.Carts[0]) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := valid
			cmd.Carts = []Cart{{SellerID: "s1", Products: []CartProduct{{ProductID: "p1", Quantity: 1}}}}
			tt.mutate(&cmd)
			err := cmd.Validate()
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
}

func TestPaymentSuccessCommand_Validate(t *testing.T) {
	cmd := PaymentSuccessCommand{OrderIDs: []string{"o1"}, PaymentID: "pay-1", Status: "success"}
	assert.NoError(t, cmd.Validate())

	cmd.Status = "FAILED"
	assert.ErrorIs(t, cmd.Validate(), ErrValidation)

	cmd.Status = "PAID"
	cmd.OrderIDs = nil
	assert.ErrorIs(t, cmd.Validate(), ErrValidation)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(ErrValidation))
	assert.True(t, IsPermanent(errors.Join(errors.New("ctx"), ErrInvalidState)))
	assert.False(t, IsPermanent(errors.New("connection reset")))
}
