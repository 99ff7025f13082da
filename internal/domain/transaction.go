package domain

import "github.com/shopspring/decimal"

type Transaction struct {
	ID                   int64           `db:"id"`
	TransactionCode      string          `db:"transaction_code"`
	OrderID              string          `db:"order_id"`
	CustomerName         string          `db:"customer_name"`
	CustomerPhone        string          `db:"customer_phone"`
	CustomerEmail        *string         `db:"customer_email"`
	TotalAmount          decimal.Decimal `db:"total_amount"`
	PaymentStatus        PaymentStatus   `db:"payment_status"`
	PaymentMethod        *string         `db:"payment_method"`
	GatewayTransactionID *string         `db:"gateway_transaction_id"`
	PaymentToken         *string         `db:"payment_token"`
	PaymentURL           *string         `db:"payment_url"`
	PaymentExpiry        *int64          `db:"payment_expiry"`
	Source               string          `db:"source"`
	InvoiceURL           *string         `db:"invoice_url"`
	QRCode               *string         `db:"qr_code"`
	IsScan               bool            `db:"is_scan"`
	ScannedAt            *int64          `db:"scanned_at"`
	ScannedByStoreID     *int64          `db:"scanned_by_store_id"`
	PaidAt               *int64          `db:"paid_at"`
	PaidNotifiedAt       *int64          `db:"paid_notified_at"`
	NeedsReview          bool            `db:"needs_review"`
	IsDummy              bool            `db:"is_dummy"`
	CreatedAt            int64           `db:"created_at"`
	UpdatedAt            int64           `db:"updated_at"`

	Items []TransactionItem `db:"-"`
}

func (t Transaction) HasAppointment() bool {
	for _, item := range t.Items {
		if item.RequiresAppointment {
			return true
		}
	}
	return false
}

type TransactionItem struct {
	ID                  int64           `db:"id"`
	TransactionID       int64           `db:"transaction_id"`
	ProductID           int64           `db:"product_id"`
	StoreID             int64           `db:"store_id"`
	ProductName         string          `db:"product_name"`
	Price               decimal.Decimal `db:"price"`
	Quantity            int64           `db:"quantity"`
	Subtotal            decimal.Decimal `db:"subtotal"`
	RequiresAppointment bool            `db:"requires_appointment"`
	ItemStatus          ItemStatus      `db:"item_status"`
	BalanceCredited     bool            `db:"balance_credited"`
	CreditedAmount      decimal.Decimal `db:"credited_amount"`
	CreatedAt           int64           `db:"created_at"`
	UpdatedAt           int64           `db:"updated_at"`
}

// WebhookLog is the append-only audit of every notification received.
type WebhookLog struct {
	ID                string  `db:"id"`
	OrderID           string  `db:"order_id"`
	TransactionStatus string  `db:"transaction_status"`
	FraudStatus       *string `db:"fraud_status"`
	PaymentType       *string `db:"payment_type"`
	GrossAmount       *string `db:"gross_amount"`
	SignatureValid    bool    `db:"signature_valid"`
	Payload           string  `db:"payload"`
	CreatedAt         int64   `db:"created_at"`
}

const (
	BalanceCredit = "credit"
	BalanceDebit  = "debit"
)

type StoreBalanceHistory struct {
	ID                int64           `db:"id"`
	StoreID           int64           `db:"store_id"`
	TransactionItemID int64           `db:"transaction_item_id"`
	Type              string          `db:"type"`
	Amount            decimal.Decimal `db:"amount"`
	CreatedAt         int64           `db:"created_at"`
}

// Product is read from the shared catalog table.
type Product struct {
	ID                  int64           `db:"id"`
	Name                string          `db:"name"`
	Price               decimal.Decimal `db:"price"`
	StoreID             int64           `db:"store_id"`
	RequiresAppointment bool            `db:"requires_appointment"`
}

type InvoiceLine struct {
	Name     string
	Quantity int64
	Price    decimal.Decimal
	Subtotal decimal.Decimal
}

// InvoiceSnapshot is everything the invoice renderer needs, detached from
// the stored rows.
type InvoiceSnapshot struct {
	TransactionCode string
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	PaymentMethod   string
	PaymentStatus   PaymentStatus
	PaidAt          int64
	Total           decimal.Decimal
	Lines           []InvoiceLine
}

func NewInvoiceSnapshot(trx Transaction) InvoiceSnapshot {
	snapshot := InvoiceSnapshot{
		TransactionCode: trx.TransactionCode,
		CustomerName:    trx.CustomerName,
		CustomerPhone:   trx.CustomerPhone,
		PaymentStatus:   trx.PaymentStatus,
		Total:           trx.TotalAmount,
	}
	if trx.CustomerEmail != nil {
		snapshot.CustomerEmail = *trx.CustomerEmail
	}
	if trx.PaymentMethod != nil {
		snapshot.PaymentMethod = *trx.PaymentMethod
	}
	if trx.PaidAt != nil {
		snapshot.PaidAt = *trx.PaidAt
	}

	for _, item := range trx.Items {
		snapshot.Lines = append(snapshot.Lines, InvoiceLine{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.Price,
			Subtotal: item.Subtotal,
		})
	}

	return snapshot
}
