package repository

import (
	"context"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// GetProductsByIDs reads the catalog owned by the product service. Soft
// deleted products are not sellable.
func (r *TransactionRepositoryImpl) GetProductsByIDs(ctx context.Context, ids []int64) (data []domain.Product, err error) {
	err = sqlx.SelectContext(ctx, r.conn(), &data,
		"SELECT id, name, price, store_id, requires_appointment FROM products WHERE id = ANY($1) AND deleted_at IS NULL",
		pq.Array(ids))
	if err != nil {
		log.Error().Err(err).Str("component", "GetProductsByIDs").Msg("")
		return nil, err
	}

	return
}
