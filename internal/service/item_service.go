package service

import (
	"context"
	"time"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/alimikegami/marketplace/payment-service/internal/repository"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type ItemServiceImpl struct {
	repository repository.TransactionRepository
}

func CreateItemService(repository repository.TransactionRepository) ItemService {
	return &ItemServiceImpl{
		repository: repository,
	}
}

// UpdateItemStatus moves a store's item through its fulfilment workflow. The
// store balance is credited when the item completes and debited again when a
// credited item is cancelled, each at most once.
func (s *ItemServiceImpl) UpdateItemStatus(ctx context.Context, storeID int64, itemID int64, status string) (resp dto.ItemStatusResponse, err error) {
	target := domain.ItemStatus(status)
	if !target.IsValid() {
		return resp, errs.ErrClient
	}

	balanceChange := decimal.Zero

	err = s.repository.HandleTrx(ctx, func(ctx context.Context, repo repository.TransactionRepository) error {
		item, err := repo.GetTransactionItemByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.ID == 0 {
			return errs.ErrNotFound
		}
		if item.StoreID != storeID {
			return errs.ErrForbidden
		}

		resp.ItemID = item.ID
		resp.PreviousStatus = string(item.ItemStatus)
		resp.ItemStatus = string(item.ItemStatus)
		resp.BalanceCredited = item.BalanceCredited

		if item.ItemStatus == target {
			return nil
		}
		if !domain.CanTransitionItem(item.ItemStatus, target) {
			return errs.ErrInvalidItemTransition
		}

		if target == domain.ItemStatusCompleted {
			trx, err := repo.GetTransactionByID(ctx, item.TransactionID)
			if err != nil {
				return err
			}
			if trx.PaymentStatus != domain.PaymentStatusPaid {
				return errs.ErrNotPaid
			}
		}

		updated, err := repo.UpdateItemStatus(ctx, item.ID, item.ItemStatus, target)
		if err != nil {
			return err
		}
		if !updated {
			return errs.ErrConflict
		}
		resp.ItemStatus = string(target)

		now := time.Now().Unix()
		switch {
		case target == domain.ItemStatusCompleted:
			credited, err := repo.MarkItemCredited(ctx, item.ID, item.Subtotal)
			if err != nil {
				return err
			}
			if !credited {
				return nil
			}
			if err := repo.AdjustStoreBalance(ctx, item.StoreID, item.Subtotal); err != nil {
				return err
			}
			if err := repo.AddStoreBalanceHistory(ctx, domain.StoreBalanceHistory{
				StoreID:           item.StoreID,
				TransactionItemID: item.ID,
				Type:              domain.BalanceCredit,
				Amount:            item.Subtotal,
				CreatedAt:         now,
			}); err != nil {
				return err
			}
			resp.BalanceCredited = true
			balanceChange = item.Subtotal

		case target == domain.ItemStatusCancel && item.BalanceCredited:
			debited, err := repo.MarkItemDebited(ctx, item.ID)
			if err != nil {
				return err
			}
			if !debited {
				return nil
			}
			if err := repo.AdjustStoreBalance(ctx, item.StoreID, item.CreditedAmount.Neg()); err != nil {
				return err
			}
			if err := repo.AddStoreBalanceHistory(ctx, domain.StoreBalanceHistory{
				StoreID:           item.StoreID,
				TransactionItemID: item.ID,
				Type:              domain.BalanceDebit,
				Amount:            item.CreditedAmount,
				CreatedAt:         now,
			}); err != nil {
				return err
			}
			resp.BalanceCredited = false
			balanceChange = item.CreditedAmount.Neg()
		}

		return nil
	})
	if err != nil {
		log.Ctx(ctx).Info().Err(err).Str("component", "UpdateItemStatus").Int64("item_id", itemID).Int64("store_id", storeID).Msg("")
		return dto.ItemStatusResponse{}, err
	}

	resp.BalanceChange = balanceChange.StringFixed(2)

	log.Ctx(ctx).Info().Str("component", "UpdateItemStatus").Int64("item_id", itemID).
		Str("previous", resp.PreviousStatus).Str("current", resp.ItemStatus).Str("balance_change", resp.BalanceChange).Msg("item status updated")

	return resp, nil
}
