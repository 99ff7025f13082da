package paymentgateway

import (
	"context"

	"github.com/shopspring/decimal"
)

type Customer struct {
	Name  string
	Email string
	Phone string
}

type ChargeItem struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int64
}

type ChargeRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Customer Customer
	Items    []ChargeItem
}

type ChargeResult struct {
	Token       string
	RedirectURL string
	ExpiresAt   int64
	Dummy       bool
}

type StatusResult struct {
	TransactionStatus string
	PaymentType       string
	FraudStatus       string
	TransactionID     string
	SettlementTime    string
	GrossAmount       string
}

type PaymentGateway interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	QueryStatus(ctx context.Context, orderID string) (StatusResult, error)
	// VerifySignature checks a notification signature_key. It accepts every
	// notification when no server key is configured.
	VerifySignature(orderID, statusCode, grossAmount, signatureKey string) bool
}
