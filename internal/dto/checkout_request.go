package dto

type CheckoutItem struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0,lte=100"`
}

type CheckoutRequest struct {
	CustomerName  string         `json:"customer_name" validate:"required,max=255"`
	CustomerPhone string         `json:"customer_phone" validate:"required,min=8,max=20"`
	CustomerEmail string         `json:"customer_email" validate:"omitempty,email"`
	Source        string         `json:"source" validate:"omitempty,oneof=web embed"`
	Items         []CheckoutItem `json:"items" validate:"required,min=1,dive"`
}

type CheckoutResponse struct {
	TransactionCode string `json:"transaction_code"`
	OrderID         string `json:"order_id"`
	TotalAmount     string `json:"total_amount"`
	PaymentStatus   string `json:"payment_status"`
	PaymentToken    string `json:"payment_token"`
	PaymentURL      string `json:"payment_url"`
	PaymentExpiry   int64  `json:"payment_expiry"`
	IsDummy         bool   `json:"is_dummy"`
}
