package repository

import (
	"context"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/shopspring/decimal"
)

type TransactionRepository interface {
	// HandleTrx runs fn inside one database transaction. Nested calls reuse
	// the outer transaction.
	HandleTrx(ctx context.Context, fn func(ctx context.Context, repo TransactionRepository) error) error

	AddTransaction(ctx context.Context, data domain.Transaction) (id int64, err error)
	AddTransactionItems(ctx context.Context, data []domain.TransactionItem) (err error)
	GetTransactionByCode(ctx context.Context, code string) (data domain.Transaction, err error)
	GetTransactionByCodeForUpdate(ctx context.Context, code string) (data domain.Transaction, err error)
	GetTransactionByID(ctx context.Context, id int64) (data domain.Transaction, err error)
	GetTransactionItems(ctx context.Context, transactionID int64) (data []domain.TransactionItem, err error)
	GetPendingTransactions(ctx context.Context, createdSince int64, limit int) (data []domain.Transaction, err error)
	UpdatePaymentStatus(ctx context.Context, data domain.Transaction, previous domain.PaymentStatus) (updated bool, err error)
	SetInvoiceURL(ctx context.Context, id int64, invoiceURL string) (updated bool, err error)
	SetQRCode(ctx context.Context, id int64, qrCode string) (updated bool, err error)
	ClaimPaidNotification(ctx context.Context, id int64, notifiedAt int64) (claimed bool, err error)
	MarkScanned(ctx context.Context, id int64, storeID int64, scannedAt int64) (updated bool, err error)

	AddWebhookLog(ctx context.Context, data domain.WebhookLog) (err error)
	HasWebhookLog(ctx context.Context, orderIDs []string) (exists bool, err error)

	GetProductsByIDs(ctx context.Context, ids []int64) (data []domain.Product, err error)

	GetTransactionItemByIDForUpdate(ctx context.Context, id int64) (data domain.TransactionItem, err error)
	UpdateItemStatus(ctx context.Context, id int64, from, to domain.ItemStatus) (updated bool, err error)
	MarkItemCredited(ctx context.Context, id int64, amount decimal.Decimal) (updated bool, err error)
	MarkItemDebited(ctx context.Context, id int64) (updated bool, err error)
	AdjustStoreBalance(ctx context.Context, storeID int64, delta decimal.Decimal) (err error)
	AddStoreBalanceHistory(ctx context.Context, data domain.StoreBalanceHistory) (err error)
}
