package dto

const (
	EventPaymentStatusChanged = "payment_status_changed"
	EventPaymentPaid          = "payment_paid"
)

type KafkaMessage struct {
	EventType string      `json:"event_type"`
	Data      interface{} `json:"data"`
}

type PaymentEvent struct {
	TransactionCode string `json:"transaction_code"`
	OrderID         string `json:"order_id"`
	PreviousStatus  string `json:"previous_status,omitempty"`
	CurrentStatus   string `json:"current_status"`
	Source          string `json:"source"`
	TotalAmount     string `json:"total_amount"`
	NeedsReview     bool   `json:"needs_review,omitempty"`
	OccurredAt      int64  `json:"occurred_at"`
}
