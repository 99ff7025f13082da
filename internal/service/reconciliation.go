package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/alimikegami/marketplace/payment-service/internal/repository"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/rs/zerolog/log"
)

const reasonConcurrentUpdate = "concurrent_update"

// Signal is one candidate status coming from an ingress.
type Signal struct {
	OrderID              string
	Candidate            domain.PaymentStatus
	FraudOverride        bool
	PaymentMethod        string
	GatewayTransactionID string
	Source               domain.SignalSource
	PaidAt               int64
}

type Outcome struct {
	Transaction domain.Transaction
	Previous    domain.PaymentStatus
	Current     domain.PaymentStatus
	Applied     bool
	FirstPaid   bool
	NeedsReview bool
	Reason      string
}

// ReconciliationEngine is the single writer of payment_status. Every ingress
// goes through Reconcile.
type ReconciliationEngine struct {
	repository repository.TransactionRepository
	dispatcher *SideEffectDispatcher
	publisher  EventPublisher
	metrics    MetricsRecorder
}

func CreateReconciliationEngine(repository repository.TransactionRepository, dispatcher *SideEffectDispatcher, publisher EventPublisher, metrics MetricsRecorder) *ReconciliationEngine {
	return &ReconciliationEngine{
		repository: repository,
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    metrics,
	}
}

func (e *ReconciliationEngine) Reconcile(ctx context.Context, sig Signal) (outcome Outcome, err error) {
	logger := log.Ctx(ctx).With().Str("component", "Reconcile").Str("order_id", sig.OrderID).
		Str("candidate", string(sig.Candidate)).Str("source", string(sig.Source)).Logger()

	err = e.repository.HandleTrx(ctx, func(ctx context.Context, repo repository.TransactionRepository) error {
		trx, err := repo.GetTransactionByCodeForUpdate(ctx, sig.OrderID)
		if err != nil {
			return err
		}
		if trx.ID == 0 {
			return fmt.Errorf("%w: %s", errs.ErrNotFound, sig.OrderID)
		}

		outcome.Previous = trx.PaymentStatus
		outcome.Current = trx.PaymentStatus

		decision := domain.DecideTransition(trx.PaymentStatus, sig.Candidate, sig.Source, sig.FraudOverride)
		outcome.Reason = decision.Reason
		if !decision.Apply {
			return nil
		}

		update := domain.Transaction{
			ID:            trx.ID,
			PaymentStatus: sig.Candidate,
			NeedsReview:   decision.NeedsReview,
		}
		if sig.PaymentMethod != "" {
			update.PaymentMethod = &sig.PaymentMethod
		}
		if sig.GatewayTransactionID != "" {
			update.GatewayTransactionID = &sig.GatewayTransactionID
		}
		if sig.Candidate == domain.PaymentStatusPaid {
			paidAt := sig.PaidAt
			if paidAt == 0 {
				paidAt = time.Now().Unix()
			}
			update.PaidAt = &paidAt
		}

		updated, err := repo.UpdatePaymentStatus(ctx, update, trx.PaymentStatus)
		if err != nil {
			return err
		}
		if !updated {
			outcome.Reason = reasonConcurrentUpdate
			return nil
		}

		outcome.Applied = true
		outcome.NeedsReview = decision.NeedsReview
		outcome.Current = sig.Candidate
		return nil
	})
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			logger.Error().Err(err).Msg("failed to apply payment status")
		}
		return outcome, err
	}

	fresh, err := e.repository.GetTransactionByCode(ctx, sig.OrderID)
	if err != nil {
		logger.Warn().Err(err).Msg("could not re-read transaction after reconcile")
	} else {
		outcome.Transaction = fresh
		if fresh.PaymentStatus != outcome.Current {
			logger.Warn().Str("expected", string(outcome.Current)).Str("stored", string(fresh.PaymentStatus)).
				Msg("stored payment status differs from the applied one")
		}
	}

	if !outcome.Applied {
		if outcome.Reason != domain.ReasonUnchanged {
			e.metrics.Rejected(outcome.Reason, string(sig.Source))
			logger.Info().Str("current", string(outcome.Current)).Str("reason", outcome.Reason).Msg("candidate status rejected")
		}
		return outcome, nil
	}

	e.metrics.Transition(string(outcome.Previous), string(outcome.Current), string(sig.Source))
	logger.Info().Str("previous", string(outcome.Previous)).Str("current", string(outcome.Current)).Msg("payment status updated")

	if outcome.NeedsReview {
		logger.Warn().Msg("paid transaction downgraded by fraud signal, flagged for manual review")
	}

	e.publishStatusChanged(ctx, sig, outcome)

	outcome.FirstPaid = outcome.Previous != domain.PaymentStatusPaid && outcome.Current == domain.PaymentStatusPaid
	if outcome.FirstPaid {
		code := outcome.Transaction.TransactionCode
		if code == "" {
			code = sig.OrderID
		}
		e.dispatcher.Dispatch(ctx, code)
	}

	return outcome, nil
}

func (e *ReconciliationEngine) publishStatusChanged(ctx context.Context, sig Signal, outcome Outcome) {
	event := dto.PaymentEvent{
		TransactionCode: outcome.Transaction.TransactionCode,
		OrderID:         sig.OrderID,
		PreviousStatus:  string(outcome.Previous),
		CurrentStatus:   string(outcome.Current),
		Source:          string(sig.Source),
		TotalAmount:     outcome.Transaction.TotalAmount.StringFixed(2),
		NeedsReview:     outcome.NeedsReview,
		OccurredAt:      time.Now().Unix(),
	}
	if event.TransactionCode == "" {
		event.TransactionCode = sig.OrderID
	}

	err := e.publisher.Publish(ctx, event.TransactionCode, dto.KafkaMessage{
		EventType: dto.EventPaymentStatusChanged,
		Data:      event,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "publishStatusChanged").Str("order_id", sig.OrderID).Msg("")
	}
}
