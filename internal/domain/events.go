package domain

import "time"

// Inbound command topics.
const (
	TopicOrderCreate         = "order.create"
	TopicPaymentSuccess      = "payment.success"
	TopicPaymentFailed       = "payment.failed"
	TopicBankingRequested    = "order.payment.banking.requested"
	TopicOrderConfirm        = "order.confirm"
	TopicOrderReject         = "order.reject"
	TopicOrderComplete       = "order.complete"
	TopicOrderTimeout        = "order.timeout"
	TopicCancelRequestCreate = "order.cancel_request.create"
	TopicCancelRequestAccept = "order.cancel_request.accept"
	TopicCancelRequestReject = "order.cancel_request.reject"
)

// Outbound event topics.
const (
	EventOrderCreated           = "order.created"
	EventOrderConfirmed         = "order.confirmed"
	EventOrderRejected          = "order.rejected"
	EventOrderCompleted         = "order.completed"
	EventCancelRequestCreated   = "order.cancel_request.created"
	EventCancelRequestSuccessed = "order.cancel_request.successed"
	EventCancelRequestFailed    = "order.cancel_request.failed"
	EventCartClearAfterPayment  = "cart.clear.after.payment"
	EventNotificationCreate     = "noti.create"
	EventPaymentBankingRequest  = "payment.banking.requested"
)

type CreatedProduct struct {
	ProductID string `json:"productId"`
	SellerID  string `json:"sellerId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// OrderCreated starts the payment flow for a whole checkout.
type OrderCreated struct {
	UserID        string           `json:"userId"`
	OrderIDs      []string         `json:"orderIds"`
	OrderCode     string           `json:"orderCode"`
	PaymentMethod string           `json:"paymentMethod"`
	Products      []CreatedProduct `json:"products"`
	Total         int64            `json:"total"`
}

type CartClearSeller struct {
	SellerID string `json:"sellerId"`
	Items    []Item `json:"items"`
}

type CartClearAfterPayment struct {
	UserID  string            `json:"userId"`
	Sellers []CartClearSeller `json:"sellers"`
}

const (
	NotificationNewOrder       = "NEW_ORDER"
	NotificationOrderConfirmed = "ORDER_CONFIRMED"
	NotificationOrderRejected  = "ORDER_REJECTED"
)

type Notification struct {
	UserID  string `json:"userId"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

// OrderConfirmed must not carry amounts: revenue is booked on completion.
type OrderConfirmed struct {
	UserID      string    `json:"userId"`
	OrderID     string    `json:"orderId"`
	SellerID    string    `json:"sellerId"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

type OrderRejected struct {
	UserID     string    `json:"userId"`
	OrderID    string    `json:"orderId"`
	SellerID   string    `json:"sellerId"`
	Reason     string    `json:"reason,omitempty"`
	Items      []Item    `json:"items"`
	RejectedAt time.Time `json:"rejectedAt"`
}

type OrderCompleted struct {
	OrderID     string    `json:"orderId"`
	SellerID    string    `json:"sellerId"`
	TotalAmount int64     `json:"totalAmount"`
	Items       []Item    `json:"items"`
	CompletedAt time.Time `json:"completedAt"`
}

type CancelRequestEvent struct {
	OrderID  string    `json:"orderId"`
	UserID   string    `json:"userId"`
	SellerID string    `json:"sellerId"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

type BankingPaymentRequested struct {
	UserID    string   `json:"userId"`
	OrderIDs  []string `json:"orderIds"`
	OrderCode string   `json:"orderCode"`
	Total     int64    `json:"total"`
}
