package domain

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderConfirmed = "OrderConfirmed"
	EventOrderShipped   = "OrderShipped"
	EventOrderDelivered = "OrderDelivered"
	EventOrderCancelled = "OrderCancelled"
	EventPaymentUpdated = "PaymentUpdated"
)

type OrderCreated struct {
	OrderID    string     `json:"order_id"`
	Number     string     `json:"number"`
	UserID     string     `json:"user_id"`
	TotalCents int64      `json:"total_cents"`
	Items      []LineItem `json:"items"`
}

type OrderStatusChanged struct {
	OrderID     string `json:"order_id"`
	Fulfillment string `json:"fulfillment"`
	Payment     string `json:"payment"`
	Reason      string `json:"reason,omitempty"`
}
