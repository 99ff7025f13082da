package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

func (r *TransactionRepositoryImpl) GetTransactionItemByIDForUpdate(ctx context.Context, id int64) (data domain.TransactionItem, err error) {
	err = sqlx.GetContext(ctx, r.conn(), &data,
		"SELECT "+itemColumns+" FROM transaction_items WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TransactionItem{}, nil
		}
		log.Error().Err(err).Str("component", "GetTransactionItemByIDForUpdate").Msg("")
		return
	}

	return
}

func (r *TransactionRepositoryImpl) UpdateItemStatus(ctx context.Context, id int64, from, to domain.ItemStatus) (updated bool, err error) {
	result, err := r.conn().ExecContext(ctx,
		"UPDATE transaction_items SET item_status = $1, updated_at = $2 WHERE id = $3 AND item_status = $4",
		to, time.Now().Unix(), id, from)
	if err != nil {
		log.Error().Err(err).Str("component", "UpdateItemStatus").Msg("")
		return
	}

	return affected(result)
}

// MarkItemCredited flips balance_credited once; a second call reports false.
func (r *TransactionRepositoryImpl) MarkItemCredited(ctx context.Context, id int64, amount decimal.Decimal) (updated bool, err error) {
	result, err := r.conn().ExecContext(ctx,
		"UPDATE transaction_items SET balance_credited = true, credited_amount = $1, updated_at = $2 WHERE id = $3 AND balance_credited = false",
		amount, time.Now().Unix(), id)
	if err != nil {
		log.Error().Err(err).Str("component", "MarkItemCredited").Msg("")
		return
	}

	return affected(result)
}

func (r *TransactionRepositoryImpl) MarkItemDebited(ctx context.Context, id int64) (updated bool, err error) {
	result, err := r.conn().ExecContext(ctx,
		"UPDATE transaction_items SET balance_credited = false, updated_at = $1 WHERE id = $2 AND balance_credited = true",
		time.Now().Unix(), id)
	if err != nil {
		log.Error().Err(err).Str("component", "MarkItemDebited").Msg("")
		return
	}

	return affected(result)
}

func (r *TransactionRepositoryImpl) AdjustStoreBalance(ctx context.Context, storeID int64, delta decimal.Decimal) (err error) {
	_, err = r.conn().ExecContext(ctx, "UPDATE stores SET balance = balance + $1 WHERE id = $2", delta, storeID)
	if err != nil {
		log.Error().Err(err).Str("component", "AdjustStoreBalance").Msg("")
		return
	}

	return nil
}

func (r *TransactionRepositoryImpl) AddStoreBalanceHistory(ctx context.Context, data domain.StoreBalanceHistory) (err error) {
	_, err = sqlx.NamedExecContext(ctx, r.conn(), `INSERT INTO store_balance_histories(store_id, transaction_item_id, type, amount, created_at)
		VALUES (:store_id, :transaction_item_id, :type, :amount, :created_at)`, data)
	if err != nil {
		log.Error().Err(err).Str("component", "AddStoreBalanceHistory").Msg("")
		return
	}

	return nil
}
