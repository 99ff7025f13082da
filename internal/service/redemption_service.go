package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/alimikegami/marketplace/payment-service/internal/repository"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/rs/zerolog/log"
)

// AlreadyUsedError carries who redeemed the code first.
type AlreadyUsedError struct {
	Scan dto.ScanInfo
}

func (e *AlreadyUsedError) Error() string {
	return errs.ErrAlreadyUsed.Error()
}

func (e *AlreadyUsedError) Unwrap() error {
	return errs.ErrAlreadyUsed
}

type RedemptionServiceImpl struct {
	repository repository.TransactionRepository
}

func CreateRedemptionService(repository repository.TransactionRepository) RedemptionService {
	return &RedemptionServiceImpl{
		repository: repository,
	}
}

func (s *RedemptionServiceImpl) Redeem(ctx context.Context, code string, storeID int64) (resp dto.RedeemResponse, err error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return resp, errs.ErrClient
	}

	err = s.repository.HandleTrx(ctx, func(ctx context.Context, repo repository.TransactionRepository) error {
		trx, err := repo.GetTransactionByCodeForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if trx.ID == 0 {
			return errs.ErrNotFound
		}

		var owned []domain.TransactionItem
		for _, item := range trx.Items {
			if item.StoreID == storeID && item.RequiresAppointment {
				owned = append(owned, item)
			}
		}
		if len(owned) == 0 {
			return errs.ErrForbidden
		}
		if trx.PaymentStatus != domain.PaymentStatusPaid {
			return errs.ErrNotPaid
		}
		if trx.QRCode == nil {
			// paid but the QR was never issued; support replays side effects first
			return fmt.Errorf("%w: no qr code issued for %s", errs.ErrNotFound, trx.TransactionCode)
		}
		if trx.IsScan {
			return &AlreadyUsedError{Scan: dto.ScanInfo{ScannedAt: trx.ScannedAt, ScannedByStoreID: trx.ScannedByStoreID}}
		}

		scannedAt := time.Now().Unix()
		updated, err := repo.MarkScanned(ctx, trx.ID, storeID, scannedAt)
		if err != nil {
			return err
		}
		if !updated {
			return &AlreadyUsedError{}
		}

		resp = dto.RedeemResponse{
			TransactionCode: trx.TransactionCode,
			CustomerName:    trx.CustomerName,
			CustomerPhone:   trx.CustomerPhone,
			ScannedAt:       scannedAt,
		}
		for _, item := range owned {
			resp.Items = append(resp.Items, dto.RedeemItem{
				ItemID:      item.ID,
				ProductName: item.ProductName,
				Quantity:    item.Quantity,
			})
		}
		return nil
	})
	if err != nil {
		log.Ctx(ctx).Info().Err(err).Str("component", "Redeem").Str("code", code).Int64("store_id", storeID).Msg("redemption refused")
		return dto.RedeemResponse{}, err
	}

	log.Ctx(ctx).Info().Str("component", "Redeem").Str("code", code).Int64("store_id", storeID).Msg("appointment redeemed")

	return resp, nil
}
