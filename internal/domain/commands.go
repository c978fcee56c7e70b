package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var orderCodePattern = regexp.MustCompile(`^\d{10,16}$`)

func ValidOrderCode(code string) bool {
	return orderCodePattern.MatchString(code)
}

type CartProduct struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart is the part of a checkout sold by one seller. Fee and discounts are
// shop-level and optional.
type Cart struct {
	SellerID        string        `json:"sellerId"`
	Products        []CartProduct `json:"products"`
	ShippingFee     int64         `json:"shippingFee,omitempty"`
	VoucherDiscount int64         `json:"voucherDiscount,omitempty"`
	PaymentDiscount int64         `json:"paymentDiscount,omitempty"`
}

type CreateOrdersCommand struct {
	UserID        string `json:"userId"`
	OrderCode     string `json:"orderCode"`
	PaymentMethod string `json:"paymentMethod"`
	Carts         []Cart `json:"carts"`
}

func (c CreateOrdersCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if !ValidOrderCode(c.OrderCode) {
		return fmt.Errorf("%w: orderCode must be 10-16 digits", ErrValidation)
	}
	if len(c.Carts) == 0 {
		return fmt.Errorf("%w: carts must not be empty", ErrValidation)
	}
	sellers := make(map[string]struct{}, len(c.Carts))
	for i, cart := range c.Carts {
		if strings.TrimSpace(cart.SellerID) == "" {
			return fmt.Errorf("%w: carts[%d].sellerId is required", ErrValidation, i)
		}
		if _, dup := sellers[cart.SellerID]; dup {
			return fmt.Errorf("%w: seller %s appears in more than one cart", ErrValidation, cart.SellerID)
		}
		sellers[cart.SellerID] = struct{}{}
		if len(cart.Products) == 0 {
			return fmt.Errorf("%w: carts[%d].products must not be empty", ErrValidation, i)
		}
		if cart.ShippingFee < 0 || cart.VoucherDiscount < 0 || cart.PaymentDiscount < 0 {
			return fmt.Errorf("%w: carts[%d] fees and discounts must not be negative", ErrValidation, i)
		}
		for j, p := range cart.Products {
			if strings.TrimSpace(p.ProductID) == "" {
				return fmt.Errorf("%w: carts[%d].products[%d].productId is required", ErrValidation, i, j)
			}
			if p.Quantity <= 0 {
				return fmt.Errorf("%w: carts[%d].products[%d].quantity must be positive", ErrValidation, i, j)
			}
		}
	}
	return nil
}

// CreateResult is returned for both fresh and duplicate checkouts.
type CreateResult struct {
	Duplicate bool     `json:"duplicate"`
	OrderIDs  []string `json:"orderIds"`
}

type PaymentSuccessCommand struct {
	UserID        string   `json:"userId"`
	OrderIDs      []string `json:"orderIds"`
	PaymentMethod string   `json:"paymentMethod"`
	Total         int64    `json:"total"`
	PaidAmount    int64    `json:"paidAmount"`
	Status        string   `json:"status"`
	PaymentID     string   `json:"paymentId"`
}

var paidStatuses = map[string]struct{}{"SUCCESS": {}, "PAID": {}, "COMPLETED": {}}

func (c PaymentSuccessCommand) Validate() error {
	if len(c.OrderIDs) == 0 {
		return fmt.Errorf("%w: orderIds must not be empty", ErrValidation)
	}
	if strings.TrimSpace(c.PaymentID) == "" {
		return fmt.Errorf("%w: paymentId is required", ErrValidation)
	}
	if _, ok := paidStatuses[strings.ToUpper(c.Status)]; !ok {
		return fmt.Errorf("%w: payment status %q is not a success status", ErrValidation, c.Status)
	}
	return nil
}

type PaymentFailedCommand struct {
	OrderCode string `json:"orderCode"`
	UserID    string `json:"userId"`
	Reason    string `json:"reason"`
	PaymentID string `json:"paymentId"`
}

func (c PaymentFailedCommand) Validate() error {
	if !ValidOrderCode(c.OrderCode) {
		return fmt.Errorf("%w: orderCode must be 10-16 digits", ErrValidation)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	return nil
}

type BankingRequestCommand struct {
	UserID   string   `json:"userId"`
	OrderIDs []string `json:"orderIds"`
}

func (c BankingRequestCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if len(c.OrderIDs) == 0 {
		return fmt.Errorf("%w: orderIds must not be empty", ErrValidation)
	}
	return nil
}

// SellerCommand covers confirm, reject, complete and the seller side of the
// cancel-request flow.
type SellerCommand struct {
	OrderID  string `json:"orderId"`
	SellerID string `json:"sellerId"`
	Reason   string `json:"reason,omitempty"`
}

func (c SellerCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return fmt.Errorf("%w: orderId is required", ErrValidation)
	}
	if strings.TrimSpace(c.SellerID) == "" {
		return fmt.Errorf("%w: sellerId is required", ErrValidation)
	}
	return nil
}

type CancelRequestCommand struct {
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Reason  string `json:"reason,omitempty"`
}

func (c CancelRequestCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return fmt.Errorf("%w: orderId is required", ErrValidation)
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	return nil
}

// TimeoutCommand names the checkout whose payment window elapsed. Either
// orderCode or orderIds must be present.
type TimeoutCommand struct {
	OrderCode string   `json:"orderCode"`
	UserID    string   `json:"userId"`
	OrderIDs  []string `json:"orderIds"`
}

func (c TimeoutCommand) Validate() error {
	if c.OrderCode == "" && len(c.OrderIDs) == 0 {
		return fmt.Errorf("%w: orderCode or orderIds is required", ErrValidation)
	}
	if c.OrderCode != "" && !ValidOrderCode(c.OrderCode) {
		return fmt.Errorf("%w: orderCode must be 10-16 digits", ErrValidation)
	}
	return nil
}
