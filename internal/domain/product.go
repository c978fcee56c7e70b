package domain

// Product is the subset of the product service record needed to price an order.
type Product struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	SellerID string `json:"sellerId"`
}
