package dto

type PaymentStatusResponse struct {
	TransactionCode string  `json:"transaction_code"`
	OrderID         string  `json:"order_id"`
	PaymentStatus   string  `json:"payment_status"`
	PaymentMethod   *string `json:"payment_method"`
	TotalAmount     string  `json:"total_amount"`
	WebhookReceived bool    `json:"webhook_received"`
	InvoiceURL      *string `json:"invoice_url"`
	QRCode          *string `json:"qr_code"`
	NeedsReview     bool    `json:"needs_review"`
	PaidAt          *int64  `json:"paid_at"`
}

type CheckStatusResponse struct {
	PaymentStatusResponse
	PreviousStatus string `json:"previous_status"`
	Updated        bool   `json:"updated"`
	UpstreamFound  bool   `json:"upstream_found"`
}

const (
	SweepResultUpdated   = "updated"
	SweepResultUnchanged = "unchanged"
	SweepResultError     = "error"
)

type SweepItemResult struct {
	TransactionCode string `json:"transaction_code"`
	Result          string `json:"result"`
	PreviousStatus  string `json:"previous_status"`
	CurrentStatus   string `json:"current_status"`
	Error           string `json:"error,omitempty"`
}

type SweepResponse struct {
	Checked   int               `json:"checked"`
	Updated   int               `json:"updated"`
	Unchanged int               `json:"unchanged"`
	Errors    int               `json:"errors"`
	Results   []SweepItemResult `json:"results"`
}

type SideEffectResponse struct {
	TransactionCode string  `json:"transaction_code"`
	InvoiceURL      *string `json:"invoice_url"`
	QRCode          *string `json:"qr_code"`
	Notified        bool    `json:"notified"`
}

type ItemStatusResponse struct {
	ItemID          int64  `json:"item_id"`
	PreviousStatus  string `json:"previous_status"`
	ItemStatus      string `json:"item_status"`
	BalanceCredited bool   `json:"balance_credited"`
	BalanceChange   string `json:"balance_change"`
}

type RedeemItem struct {
	ItemID      int64  `json:"item_id"`
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
}

type RedeemResponse struct {
	TransactionCode string       `json:"transaction_code"`
	CustomerName    string       `json:"customer_name"`
	CustomerPhone   string       `json:"customer_phone"`
	ScannedAt       int64        `json:"scanned_at"`
	Items           []RedeemItem `json:"items"`
}

// ScanInfo identifies who redeemed a code before; it is returned with the
// already used error.
type ScanInfo struct {
	ScannedAt        *int64 `json:"scanned_at"`
	ScannedByStoreID *int64 `json:"scanned_by_store_id"`
}
