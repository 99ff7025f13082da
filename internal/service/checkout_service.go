package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	paymentgateway "github.com/alimikegami/marketplace/payment-service/internal/infrastructure/payment-gateway"
	"github.com/alimikegami/marketplace/payment-service/internal/repository"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/alimikegami/marketplace/payment-service/pkg/utils"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const defaultSource = "web"

type CheckoutServiceImpl struct {
	repository repository.TransactionRepository
	gateway    paymentgateway.PaymentGateway
	messenger  Messenger
}

func CreateCheckoutService(repository repository.TransactionRepository, gateway paymentgateway.PaymentGateway, messenger Messenger) CheckoutService {
	return &CheckoutServiceImpl{
		repository: repository,
		gateway:    gateway,
		messenger:  messenger,
	}
}

func (s *CheckoutServiceImpl) Checkout(ctx context.Context, req dto.CheckoutRequest) (resp dto.CheckoutResponse, err error) {
	quantities := make(map[int64]int64)
	var productIDs []int64
	for _, item := range req.Items {
		if _, seen := quantities[item.ProductID]; !seen {
			productIDs = append(productIDs, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	products, err := s.repository.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "Checkout").Msg("")
		return resp, err
	}

	catalog := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		catalog[p.ID] = p
	}

	code := "TRX-" + ulid.Make().String()
	total := decimal.Zero
	items := make([]domain.TransactionItem, 0, len(productIDs))
	chargeItems := make([]paymentgateway.ChargeItem, 0, len(productIDs))
	for _, id := range productIDs {
		product, ok := catalog[id]
		if !ok {
			return resp, fmt.Errorf("%w: %d", errs.ErrProductNotFound, id)
		}

		qty := quantities[id]
		subtotal := product.Price.Mul(decimal.NewFromInt(qty))
		total = total.Add(subtotal)

		items = append(items, domain.TransactionItem{
			ProductID:           product.ID,
			StoreID:             product.StoreID,
			ProductName:         product.Name,
			Price:               product.Price,
			Quantity:            qty,
			Subtotal:            subtotal,
			RequiresAppointment: product.RequiresAppointment,
			ItemStatus:          domain.ItemStatusPending,
		})
		chargeItems = append(chargeItems, paymentgateway.ChargeItem{
			ID:       strconv.FormatInt(product.ID, 10),
			Name:     product.Name,
			Price:    product.Price,
			Quantity: qty,
		})
	}

	charge, err := s.gateway.CreateCharge(ctx, paymentgateway.ChargeRequest{
		OrderID: code,
		Amount:  total,
		Customer: paymentgateway.Customer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
		Items: chargeItems,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "Checkout").Str("transaction_code", code).Msg("")
		return resp, err
	}

	source := req.Source
	if source == "" {
		source = defaultSource
	}

	now := time.Now().Unix()
	trx := domain.Transaction{
		TransactionCode: code,
		OrderID:         code,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		TotalAmount:     total,
		PaymentStatus:   domain.PaymentStatusPending,
		PaymentToken:    &charge.Token,
		PaymentURL:      &charge.RedirectURL,
		Source:          source,
		IsDummy:         charge.Dummy,
		CreatedAt:       now,
		UpdatedAt:       now,
		Items:           items,
	}
	if req.CustomerEmail != "" {
		trx.CustomerEmail = &req.CustomerEmail
	}
	if charge.ExpiresAt != 0 {
		trx.PaymentExpiry = &charge.ExpiresAt
	}

	err = s.repository.HandleTrx(ctx, func(ctx context.Context, repo repository.TransactionRepository) error {
		id, err := repo.AddTransaction(ctx, trx)
		if err != nil {
			return err
		}

		for i := range items {
			items[i].TransactionID = id
			items[i].CreatedAt = now
			items[i].UpdatedAt = now
		}

		return repo.AddTransactionItems(ctx, items)
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "Checkout").Str("transaction_code", code).Msg("")
		return resp, err
	}

	if err := s.messenger.Send(ctx, utils.NormalizePhoneNumber(trx.CustomerPhone), pendingMessage(trx)); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "Checkout").Str("transaction_code", code).Msg("pending order message failed")
	}

	log.Ctx(ctx).Info().Str("transaction_code", code).Str("total", total.String()).Bool("dummy", charge.Dummy).Msg("checkout created")

	return dto.CheckoutResponse{
		TransactionCode: code,
		OrderID:         code,
		TotalAmount:     total.StringFixed(2),
		PaymentStatus:   string(domain.PaymentStatusPending),
		PaymentToken:    charge.Token,
		PaymentURL:      charge.RedirectURL,
		PaymentExpiry:   charge.ExpiresAt,
		IsDummy:         charge.Dummy,
	}, nil
}
