package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alimikegami/marketplace/payment-service/config"
	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	paymentgateway "github.com/alimikegami/marketplace/payment-service/internal/infrastructure/payment-gateway"
	"github.com/alimikegami/marketplace/payment-service/internal/repository"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/alimikegami/marketplace/payment-service/pkg/utils"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	sweepLeaseKey = "payment:sweep"

	NotificationSuccess = "success"
	NotificationIgnored = "ignored"
)

type PaymentServiceImpl struct {
	repository repository.TransactionRepository
	engine     *ReconciliationEngine
	dispatcher *SideEffectDispatcher
	gateway    paymentgateway.PaymentGateway
	locker     SweepLocker
	metrics    MetricsRecorder
	sweep      config.SweepConfig
}

func CreatePaymentService(repository repository.TransactionRepository, engine *ReconciliationEngine, dispatcher *SideEffectDispatcher, gateway paymentgateway.PaymentGateway, locker SweepLocker, metrics MetricsRecorder, sweep config.SweepConfig) PaymentService {
	return &PaymentServiceImpl{
		repository: repository,
		engine:     engine,
		dispatcher: dispatcher,
		gateway:    gateway,
		locker:     locker,
		metrics:    metrics,
		sweep:      sweep,
	}
}

func (s *PaymentServiceImpl) HandleNotification(ctx context.Context, req dto.PaymentNotification) (resp dto.NotificationResult, err error) {
	logger := log.Ctx(ctx).With().Str("component", "HandleNotification").Str("order_id", req.OrderID).Logger()

	if req.OrderID == "" {
		s.metrics.Webhook(NotificationIgnored)
		return dto.NotificationResult{Status: NotificationIgnored, Message: "order_id is required"}, nil
	}

	signatureValid := s.gateway.VerifySignature(req.OrderID, req.StatusCode, req.GrossAmount, req.SignatureKey)

	entry := domain.WebhookLog{
		ID:                uuid.NewString(),
		OrderID:           req.OrderID,
		TransactionStatus: req.TransactionStatus,
		FraudStatus:       optional(req.FraudStatus),
		PaymentType:       optional(req.PaymentType),
		GrossAmount:       optional(req.GrossAmount),
		SignatureValid:    signatureValid,
		Payload:           string(req.Raw),
		CreatedAt:         time.Now().Unix(),
	}
	if entry.Payload == "" {
		entry.Payload = "{}"
	}
	if err := s.repository.AddWebhookLog(ctx, entry); err != nil {
		logger.Error().Err(err).Msg("failed to store webhook log")
	}

	if !signatureValid {
		s.metrics.Webhook("invalid_signature")
		logger.Warn().Msg("notification signature mismatch")
		return dto.NotificationResult{Status: NotificationIgnored, Message: "invalid signature", OrderID: req.OrderID}, nil
	}

	sig := Signal{
		OrderID:              req.OrderID,
		Candidate:            domain.NormalizeGatewayStatus(req.TransactionStatus, req.FraudStatus),
		FraudOverride:        isFraudDeny(req.FraudStatus),
		PaymentMethod:        req.PaymentType,
		GatewayTransactionID: req.TransactionID,
		Source:               domain.SourceWebhook,
	}
	if req.SettlementTime != "" {
		if paidAt, err := utils.ConvertGatewayTimeToUnixTimestamp(req.SettlementTime); err == nil {
			sig.PaidAt = paidAt
		}
	}

	outcome, err := s.engine.Reconcile(ctx, sig)
	if errors.Is(err, errs.ErrNotFound) {
		s.metrics.Webhook(NotificationIgnored)
		logger.Warn().Msg("notification for unknown transaction")
		return dto.NotificationResult{Status: NotificationIgnored, Message: "transaction not found", OrderID: req.OrderID}, nil
	}
	if err != nil {
		s.metrics.Webhook("error")
		return dto.NotificationResult{Status: NotificationIgnored, Message: "notification could not be processed", OrderID: req.OrderID}, err
	}

	s.metrics.Webhook(NotificationSuccess)
	return dto.NotificationResult{
		Status:         NotificationSuccess,
		Message:        outcome.Reason,
		OrderID:        req.OrderID,
		PreviousStatus: string(outcome.Previous),
		CurrentStatus:  string(outcome.Current),
	}, nil
}

func (s *PaymentServiceImpl) GetPaymentStatus(ctx context.Context, orderID string) (resp dto.PaymentStatusResponse, err error) {
	trx, err := s.repository.GetTransactionByCode(ctx, orderID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetPaymentStatus").Msg("")
		return resp, err
	}
	if trx.ID == 0 {
		return resp, errs.ErrNotFound
	}

	received, err := s.repository.HasWebhookLog(ctx, uniqueStrings(trx.OrderID, trx.TransactionCode))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "GetPaymentStatus").Msg("")
		return resp, err
	}

	resp = toPaymentStatusResponse(trx)
	resp.WebhookReceived = received
	return resp, nil
}

func (s *PaymentServiceImpl) CheckPaymentStatus(ctx context.Context, orderID string) (resp dto.CheckStatusResponse, err error) {
	trx, err := s.repository.GetTransactionByCode(ctx, orderID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "CheckPaymentStatus").Msg("")
		return resp, err
	}
	if trx.ID == 0 {
		return resp, errs.ErrNotFound
	}

	outcome, found, err := s.reconcileFromGateway(ctx, trx, domain.SourceCheck)
	if err != nil {
		return resp, err
	}

	resp.PaymentStatusResponse = toPaymentStatusResponse(trx)
	resp.PreviousStatus = string(trx.PaymentStatus)
	resp.UpstreamFound = found
	if outcome.Transaction.ID != 0 {
		resp.PaymentStatusResponse = toPaymentStatusResponse(outcome.Transaction)
	}
	resp.Updated = outcome.Applied
	return resp, nil
}

// reconcileFromGateway asks Midtrans for the current status and feeds it to
// the engine. A transaction Midtrans does not know is left as it is.
func (s *PaymentServiceImpl) reconcileFromGateway(ctx context.Context, trx domain.Transaction, source domain.SignalSource) (outcome Outcome, found bool, err error) {
	status, err := s.gateway.QueryStatus(ctx, trx.OrderID)
	if errors.Is(err, errs.ErrNotFoundUpstream) {
		return Outcome{Previous: trx.PaymentStatus, Current: trx.PaymentStatus, Reason: domain.ReasonUnchanged}, false, nil
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "reconcileFromGateway").Str("order_id", trx.OrderID).Msg("")
		return outcome, false, err
	}

	sig := Signal{
		OrderID:              trx.OrderID,
		Candidate:            domain.NormalizeGatewayStatus(status.TransactionStatus, status.FraudStatus),
		FraudOverride:        isFraudDeny(status.FraudStatus),
		PaymentMethod:        status.PaymentType,
		GatewayTransactionID: status.TransactionID,
		Source:               source,
	}
	if status.SettlementTime != "" {
		if paidAt, err := utils.ConvertGatewayTimeToUnixTimestamp(status.SettlementTime); err == nil {
			sig.PaidAt = paidAt
		}
	}

	outcome, err = s.engine.Reconcile(ctx, sig)
	return outcome, true, err
}

func (s *PaymentServiceImpl) SweepPendingPayments(ctx context.Context, window time.Duration, limit int) (resp dto.SweepResponse, err error) {
	if window <= 0 {
		window = s.sweep.Window
	}
	if limit <= 0 || limit > s.sweep.Limit {
		limit = s.sweep.Limit
	}

	logger := log.Ctx(ctx).With().Str("component", "SweepPendingPayments").Logger()

	token, acquired, err := s.locker.Acquire(ctx, sweepLeaseKey, s.sweep.LeaseTTL)
	if err != nil {
		logger.Error().Err(err).Msg("failed to acquire sweep lease")
		return resp, err
	}
	if !acquired {
		return resp, errs.ErrSweepInProgress
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), sweepLeaseKey, token); err != nil {
			logger.Warn().Err(err).Msg("failed to release sweep lease")
		}
	}()

	pending, err := s.repository.GetPendingTransactions(ctx, time.Now().Add(-window).Unix(), limit)
	if err != nil {
		logger.Error().Err(err).Msg("")
		return resp, err
	}

	every := rate.Inf
	if s.sweep.Delay > 0 {
		every = rate.Every(s.sweep.Delay)
	}
	limiter := rate.NewLimiter(every, 1)

	resp.Results = make([]dto.SweepItemResult, 0, len(pending))
	for _, trx := range pending {
		if err := limiter.Wait(ctx); err != nil {
			return resp, fmt.Errorf("sweep interrupted: %w", err)
		}

		item := dto.SweepItemResult{
			TransactionCode: trx.TransactionCode,
			PreviousStatus:  string(trx.PaymentStatus),
			CurrentStatus:   string(trx.PaymentStatus),
		}

		outcome, _, err := s.reconcileFromGateway(ctx, trx, domain.SourcePolling)
		switch {
		case err != nil:
			item.Result = dto.SweepResultError
			item.Error = errs.GetErrorMessage(err)
			resp.Errors++
		case outcome.Applied:
			item.Result = dto.SweepResultUpdated
			item.CurrentStatus = string(outcome.Current)
			resp.Updated++
		default:
			item.Result = dto.SweepResultUnchanged
			resp.Unchanged++
		}

		s.metrics.SweepItem(item.Result)
		resp.Checked++
		resp.Results = append(resp.Results, item)
	}

	logger.Info().Int("checked", resp.Checked).Int("updated", resp.Updated).Int("errors", resp.Errors).Msg("sweep finished")

	return resp, nil
}

// RunScheduledSweep is the gocron entry point.
func (s *PaymentServiceImpl) RunScheduledSweep() {
	ctx := log.Logger.WithContext(context.Background())

	_, err := s.SweepPendingPayments(ctx, s.sweep.Window, s.sweep.Limit)
	if errors.Is(err, errs.ErrSweepInProgress) {
		log.Info().Str("component", "RunScheduledSweep").Msg("skipped, another sweep holds the lease")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("component", "RunScheduledSweep").Msg("")
	}
}

func (s *PaymentServiceImpl) OverrideStatus(ctx context.Context, orderID string, status string) (resp dto.PaymentStatusResponse, err error) {
	candidate, ok := domain.ParsePaymentStatus(status)
	if !ok {
		return resp, errs.ErrInvalidStatus
	}

	outcome, err := s.engine.Reconcile(ctx, Signal{
		OrderID:   orderID,
		Candidate: candidate,
		Source:    domain.SourceManual,
	})
	if err != nil {
		return resp, err
	}

	log.Ctx(ctx).Warn().Str("component", "OverrideStatus").Str("order_id", orderID).
		Str("previous", string(outcome.Previous)).Str("current", string(outcome.Current)).Str("reason", outcome.Reason).Msg("payment status overridden")

	// side effects may have filled invoice and qr references since the engine read the row
	trx, err := s.repository.GetTransactionByCode(ctx, orderID)
	if err != nil || trx.ID == 0 {
		return toPaymentStatusResponse(outcome.Transaction), nil
	}

	return toPaymentStatusResponse(trx), nil
}

func (s *PaymentServiceImpl) ReplaySideEffects(ctx context.Context, orderID string) (resp dto.SideEffectResponse, err error) {
	trx, err := s.repository.GetTransactionByCode(ctx, orderID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "ReplaySideEffects").Msg("")
		return resp, err
	}
	if trx.ID == 0 {
		return resp, errs.ErrNotFound
	}
	if trx.PaymentStatus != domain.PaymentStatusPaid {
		return resp, errs.ErrNotPaid
	}

	return s.dispatcher.Run(ctx, trx.TransactionCode, DispatchOptions{ForceNotify: true})
}

func toPaymentStatusResponse(trx domain.Transaction) dto.PaymentStatusResponse {
	return dto.PaymentStatusResponse{
		TransactionCode: trx.TransactionCode,
		OrderID:         trx.OrderID,
		PaymentStatus:   string(trx.PaymentStatus),
		PaymentMethod:   trx.PaymentMethod,
		TotalAmount:     trx.TotalAmount.StringFixed(2),
		InvoiceURL:      trx.InvoiceURL,
		QRCode:          trx.QRCode,
		NeedsReview:     trx.NeedsReview,
		PaidAt:          trx.PaidAt,
	}
}

func isFraudDeny(fraudStatus string) bool {
	return domain.NormalizeGatewayStatus("", fraudStatus) == domain.PaymentStatusFailed
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func uniqueStrings(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
