package domain

import (
	"time"
)

// Status is the lifecycle state of one seller order.
type Status string

const (
	StatusPendingPayment  Status = "PENDING_PAYMENT"
	StatusPendingAccept   Status = "PENDING_ACCEPT"
	StatusConfirmed       Status = "CONFIRMED"
	StatusRequestedCancel Status = "REQUESTED_CANCEL"
	StatusCancelled       Status = "CANCELLED"
	StatusDelivered       Status = "DELIVERED"
	StatusPaymentFailed   Status = "PAYMENT_FAILED"

	// StatusShipping is never written by this service. Documents carrying it
	// can still be completed.
	StatusShipping Status = "SHIPPING"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusPendingAccept, StatusConfirmed, StatusRequestedCancel,
		StatusCancelled, StatusDelivered, StatusPaymentFailed, StatusShipping:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusPaymentFailed
}

type Item struct {
	ProductID string `json:"productId" bson:"productId"`
	Quantity  int    `json:"quantity" bson:"quantity"`
	Price     int64  `json:"price" bson:"price"`
}

func (i Item) Amount() int64 {
	return i.Price * int64(i.Quantity)
}

// Order is one seller's slice of a checkout. Amounts are minor units.
type Order struct {
	ID              string    `json:"id" bson:"_id"`
	OrderCode       string    `json:"orderCode" bson:"orderCode"`
	UserID          string    `json:"userId" bson:"userId"`
	OwnerID         string    `json:"ownerId" bson:"ownerId"`
	Items           []Item    `json:"items" bson:"items"`
	Subtotal        int64     `json:"subtotal" bson:"subtotal"`
	ShippingFee     int64     `json:"shippingFee" bson:"shippingFee"`
	VoucherDiscount int64     `json:"voucherDiscount" bson:"voucherDiscount"`
	PaymentDiscount int64     `json:"paymentDiscount" bson:"paymentDiscount"`
	FinalTotal      int64     `json:"finalTotal" bson:"finalTotal"`
	Status          Status    `json:"status" bson:"status"`
	PaymentMethod   string    `json:"paymentMethod" bson:"paymentMethod"`
	PaymentID       string    `json:"paymentId,omitempty" bson:"paymentId,omitempty"`
	CancelReason    string    `json:"cancelReason,omitempty" bson:"cancelReason,omitempty"`
	ExpiresAt       time.Time `json:"expiresAt" bson:"expiresAt"`
	CreatedAt       time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Totals holds the amounts fixed at creation.
type Totals struct {
	Subtotal        int64
	ShippingFee     int64
	VoucherDiscount int64
	PaymentDiscount int64
	FinalTotal      int64
}

// ComputeTotals sums the item snapshot and applies fee and discounts.
// The final total never drops below zero.
func ComputeTotals(items []Item, shippingFee, voucherDiscount, paymentDiscount int64) Totals {
	var subtotal int64
	for _, it := range items {
		subtotal += it.Amount()
	}
	final := subtotal + shippingFee - voucherDiscount - paymentDiscount
	if final < 0 {
		final = 0
	}
	return Totals{
		Subtotal:        subtotal,
		ShippingFee:     shippingFee,
		VoucherDiscount: voucherDiscount,
		PaymentDiscount: paymentDiscount,
		FinalTotal:      final,
	}
}

// Expired reports whether the payment window has passed at now.
func (o *Order) Expired(now time.Time) bool {
	return !o.ExpiresAt.IsZero() && !now.Before(o.ExpiresAt)
}

// Patch carries the optional fields a transition may write alongside status.
// Empty strings leave the stored value untouched.
type Patch struct {
	PaymentID     string
	PaymentMethod string
	CancelReason  string
}

// Filter selects orders; zero fields are ignored.
type Filter struct {
	IDs       []string
	OrderCode string
	UserID    string
	OwnerID   string
	Statuses  []Status
	Limit     int
}

// Matches applies the filter in memory, used by stores without a query
// language and by tests.
func (f Filter) Matches(o *Order) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, o.ID) {
		return false
	}
	if f.OrderCode != "" && o.OrderCode != f.OrderCode {
		return false
	}
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.OwnerID != "" && o.OwnerID != f.OwnerID {
		return false
	}
	if len(f.Statuses) > 0 && !ContainsStatus(f.Statuses, o.Status) {
		return false
	}
	return true
}

func ContainsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func StatusStrings(list []Status) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = string(s)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
