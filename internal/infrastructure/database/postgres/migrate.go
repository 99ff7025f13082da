package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// products and stores belong to the catalog service; they are only created
// here so a fresh local database can boot.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stores (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL DEFAULT '',
		balance NUMERIC(15, 2) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		store_id BIGINT NOT NULL REFERENCES stores(id),
		name VARCHAR(255) NOT NULL,
		price NUMERIC(15, 2) NOT NULL,
		requires_appointment BOOLEAN NOT NULL DEFAULT false,
		deleted_at BIGINT
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id BIGSERIAL PRIMARY KEY,
		transaction_code VARCHAR(64) NOT NULL UNIQUE,
		order_id VARCHAR(64) NOT NULL UNIQUE,
		customer_name VARCHAR(255) NOT NULL,
		customer_phone VARCHAR(32) NOT NULL,
		customer_email VARCHAR(255),
		total_amount NUMERIC(15, 2) NOT NULL,
		payment_status VARCHAR(16) NOT NULL DEFAULT 'pending',
		payment_method VARCHAR(64),
		gateway_transaction_id VARCHAR(128),
		payment_token VARCHAR(255),
		payment_url TEXT,
		payment_expiry BIGINT,
		source VARCHAR(32) NOT NULL DEFAULT 'web',
		invoice_url TEXT,
		qr_code TEXT,
		is_scan BOOLEAN NOT NULL DEFAULT false,
		scanned_at BIGINT,
		scanned_by_store_id BIGINT,
		paid_at BIGINT,
		paid_notified_at BIGINT,
		needs_review BOOLEAN NOT NULL DEFAULT false,
		is_dummy BOOLEAN NOT NULL DEFAULT false,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status_created ON transactions (payment_status, created_at)`,
	`CREATE TABLE IF NOT EXISTS transaction_items (
		id BIGSERIAL PRIMARY KEY,
		transaction_id BIGINT NOT NULL REFERENCES transactions(id),
		product_id BIGINT NOT NULL,
		store_id BIGINT NOT NULL,
		product_name VARCHAR(255) NOT NULL,
		price NUMERIC(15, 2) NOT NULL,
		quantity BIGINT NOT NULL,
		subtotal NUMERIC(15, 2) NOT NULL,
		requires_appointment BOOLEAN NOT NULL DEFAULT false,
		item_status VARCHAR(16) NOT NULL DEFAULT 'pending',
		balance_credited BOOLEAN NOT NULL DEFAULT false,
		credited_amount NUMERIC(15, 2) NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transaction_items_transaction ON transaction_items (transaction_id)`,
	`CREATE TABLE IF NOT EXISTS webhook_logs (
		id UUID PRIMARY KEY,
		order_id VARCHAR(64) NOT NULL,
		transaction_status VARCHAR(32) NOT NULL,
		fraud_status VARCHAR(32),
		payment_type VARCHAR(64),
		gross_amount VARCHAR(32),
		signature_valid BOOLEAN NOT NULL DEFAULT false,
		payload JSONB NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_webhook_logs_order ON webhook_logs (order_id)`,
	`CREATE TABLE IF NOT EXISTS store_balance_histories (
		id BIGSERIAL PRIMARY KEY,
		store_id BIGINT NOT NULL,
		transaction_item_id BIGINT NOT NULL,
		type VARCHAR(8) NOT NULL,
		amount NUMERIC(15, 2) NOT NULL,
		created_at BIGINT NOT NULL
	)`,
}

// Migrate creates the tables the payment service writes to. It runs once at
// startup, never on the request path.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			log.Error().Err(err).Str("component", "Migrate").Int("statement", i).Msg("")
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}

	log.Info().Str("component", "Migrate").Int("statements", len(schema)).Msg("schema is up to date")
	return nil
}
