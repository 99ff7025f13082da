package repository

import (
	"context"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

func (r *TransactionRepositoryImpl) AddWebhookLog(ctx context.Context, data domain.WebhookLog) (err error) {
	_, err = sqlx.NamedExecContext(ctx, r.conn(), `INSERT INTO webhook_logs(id, order_id, transaction_status, fraud_status,
		payment_type, gross_amount, signature_valid, payload, created_at)
		VALUES (:id, :order_id, :transaction_status, :fraud_status, :payment_type, :gross_amount, :signature_valid, :payload, :created_at)`, data)
	if err != nil {
		log.Error().Err(err).Str("component", "AddWebhookLog").Msg("")
		return
	}

	return nil
}

func (r *TransactionRepositoryImpl) HasWebhookLog(ctx context.Context, orderIDs []string) (exists bool, err error) {
	err = sqlx.GetContext(ctx, r.conn(), &exists,
		"SELECT EXISTS(SELECT 1 FROM webhook_logs WHERE order_id = ANY($1))", pq.Array(orderIDs))
	if err != nil {
		log.Error().Err(err).Str("component", "HasWebhookLog").Msg("")
		return false, err
	}

	return
}
