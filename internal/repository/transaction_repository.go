package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const transactionColumns = `id, transaction_code, order_id, customer_name, customer_phone, customer_email,
	total_amount, payment_status, payment_method, gateway_transaction_id, payment_token, payment_url,
	payment_expiry, source, invoice_url, qr_code, is_scan, scanned_at, scanned_by_store_id, paid_at,
	paid_notified_at, needs_review, is_dummy, created_at, updated_at`

const itemColumns = `id, transaction_id, product_id, store_id, product_name, price, quantity, subtotal,
	requires_appointment, item_status, balance_credited, credited_amount, created_at, updated_at`

func (r *TransactionRepositoryImpl) AddTransaction(ctx context.Context, data domain.Transaction) (id int64, err error) {
	rows, err := sqlx.NamedQueryContext(ctx, r.conn(), `INSERT INTO transactions(transaction_code, order_id, customer_name, customer_phone,
		customer_email, total_amount, payment_status, payment_token, payment_url, payment_expiry, source, is_dummy, created_at, updated_at)
		VALUES (:transaction_code, :order_id, :customer_name, :customer_phone, :customer_email, :total_amount, :payment_status,
		:payment_token, :payment_url, :payment_expiry, :source, :is_dummy, :created_at, :updated_at) RETURNING id`, data)
	if err != nil {
		log.Error().Err(err).Str("component", "AddTransaction").Msg("")
		return
	}
	defer rows.Close()

	if rows.Next() {
		err = rows.Scan(&id)
		if err != nil {
			log.Error().Err(err).Str("component", "AddTransaction").Msg("")
			return
		}
	}

	return id, rows.Err()
}

func (r *TransactionRepositoryImpl) AddTransactionItems(ctx context.Context, data []domain.TransactionItem) (err error) {
	if len(data) == 0 {
		return nil
	}

	_, err = sqlx.NamedExecContext(ctx, r.conn(), `INSERT INTO transaction_items(transaction_id, product_id, store_id, product_name,
		price, quantity, subtotal, requires_appointment, item_status, created_at, updated_at)
		VALUES (:transaction_id, :product_id, :store_id, :product_name, :price, :quantity, :subtotal, :requires_appointment,
		:item_status, :created_at, :updated_at)`, data)
	if err != nil {
		log.Error().Err(err).Str("component", "AddTransactionItems").Msg("")
		return
	}

	return nil
}

// GetTransactionByCode accepts either the transaction code or the gateway
// order id. A missing row yields a zero value and no error.
func (r *TransactionRepositoryImpl) GetTransactionByCode(ctx context.Context, code string) (data domain.Transaction, err error) {
	return r.getTransaction(ctx, "GetTransactionByCode",
		"SELECT "+transactionColumns+" FROM transactions WHERE transaction_code = $1 OR order_id = $1 LIMIT 1", code)
}

func (r *TransactionRepositoryImpl) GetTransactionByCodeForUpdate(ctx context.Context, code string) (data domain.Transaction, err error) {
	return r.getTransaction(ctx, "GetTransactionByCodeForUpdate",
		"SELECT "+transactionColumns+" FROM transactions WHERE transaction_code = $1 OR order_id = $1 LIMIT 1 FOR UPDATE", code)
}

func (r *TransactionRepositoryImpl) GetTransactionByID(ctx context.Context, id int64) (data domain.Transaction, err error) {
	return r.getTransaction(ctx, "GetTransactionByID",
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id)
}

func (r *TransactionRepositoryImpl) getTransaction(ctx context.Context, component, query string, arg interface{}) (data domain.Transaction, err error) {
	err = sqlx.GetContext(ctx, r.conn(), &data, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, nil
		}
		log.Error().Err(err).Str("component", component).Msg("")
		return
	}

	data.Items, err = r.GetTransactionItems(ctx, data.ID)

	return
}

func (r *TransactionRepositoryImpl) GetTransactionItems(ctx context.Context, transactionID int64) (data []domain.TransactionItem, err error) {
	err = sqlx.SelectContext(ctx, r.conn(), &data,
		"SELECT "+itemColumns+" FROM transaction_items WHERE transaction_id = $1 ORDER BY id", transactionID)
	if err != nil {
		log.Error().Err(err).Str("component", "GetTransactionItems").Msg("")
		return nil, err
	}

	return
}

func (r *TransactionRepositoryImpl) GetPendingTransactions(ctx context.Context, createdSince int64, limit int) (data []domain.Transaction, err error) {
	err = sqlx.SelectContext(ctx, r.conn(), &data,
		"SELECT "+transactionColumns+" FROM transactions WHERE payment_status = $1 AND created_at >= $2 ORDER BY created_at ASC LIMIT $3",
		domain.PaymentStatusPending, createdSince, limit)
	if err != nil {
		log.Error().Err(err).Str("component", "GetPendingTransactions").Msg("")
		return nil, err
	}

	return
}

// UpdatePaymentStatus is a compare-and-swap on payment_status. It reports
// false when another writer moved the row first.
func (r *TransactionRepositoryImpl) UpdatePaymentStatus(ctx context.Context, data domain.Transaction, previous domain.PaymentStatus) (updated bool, err error) {
	args := map[string]interface{}{
		"id":                     data.ID,
		"payment_status":         data.PaymentStatus,
		"previous_status":        previous,
		"payment_method":         data.PaymentMethod,
		"gateway_transaction_id": data.GatewayTransactionID,
		"paid_at":                data.PaidAt,
		"needs_review":           data.NeedsReview,
		"updated_at":             time.Now().Unix(),
	}

	result, err := sqlx.NamedExecContext(ctx, r.conn(), `UPDATE transactions SET payment_status = :payment_status,
		payment_method = COALESCE(:payment_method, payment_method),
		gateway_transaction_id = COALESCE(:gateway_transaction_id, gateway_transaction_id),
		paid_at = COALESCE(paid_at, :paid_at),
		needs_review = needs_review OR :needs_review,
		updated_at = :updated_at
		WHERE id = :id AND payment_status = :previous_status`, args)
	if err != nil {
		log.Error().Err(err).Str("component", "UpdatePaymentStatus").Msg("")
		return
	}

	return affected(result)
}

func (r *TransactionRepositoryImpl) SetInvoiceURL(ctx context.Context, id int64, invoiceURL string) (updated bool, err error) {
	result, err := r.conn().ExecContext(ctx,
		"UPDATE transactions SET invoice_url = $1, updated_at = $2 WHERE id = $3 AND invoice_url IS NULL",
		invoiceURL, time.Now().Unix(), id)
	if err != nil {
		log.Error().Err(err).Str("component", "SetInvoiceURL").Msg("")
		return
	}

	return affected(result)
}

func (r *TransactionRepositoryImpl) SetQRCode(ctx context.Context, id int64, qrCode string) (updated bool, err error) {
	result, err := r.conn().ExecContext(ctx,
		"UPDATE transactions SET qr_code = $1, updated_at = $2 WHERE id = $3 AND qr_code IS NULL",
		qrCode, time.Now().Unix(), id)
	if err != nil {
		log.Error().Err(err).Str("component", "SetQRCode").Msg("")
		return
	}

	return affected(result)
}

func (r *TransactionRepositoryImpl) ClaimPaidNotification(ctx context.Context, id int64, notifiedAt int64) (claimed bool, err error) {
	result, err := r.conn().ExecContext(ctx,
		"UPDATE transactions SET paid_notified_at = $1 WHERE id = $2 AND paid_notified_at IS NULL",
		notifiedAt, id)
	if err != nil {
		log.Error().Err(err).Str("component", "ClaimPaidNotification").Msg("")
		return
	}

	return affected(result)
}

func (r *TransactionRepositoryImpl) MarkScanned(ctx context.Context, id int64, storeID int64, scannedAt int64) (updated bool, err error) {
	result, err := r.conn().ExecContext(ctx,
		"UPDATE transactions SET is_scan = true, scanned_at = $1, scanned_by_store_id = $2, updated_at = $1 WHERE id = $3 AND is_scan = false",
		scannedAt, storeID, id)
	if err != nil {
		log.Error().Err(err).Str("component", "MarkScanned").Msg("")
		return
	}

	return affected(result)
}
