package service

import (
	"context"
	"time"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/internal/dto"
)

type CheckoutService interface {
	Checkout(ctx context.Context, req dto.CheckoutRequest) (resp dto.CheckoutResponse, err error)
}

type PaymentService interface {
	HandleNotification(ctx context.Context, req dto.PaymentNotification) (resp dto.NotificationResult, err error)
	GetPaymentStatus(ctx context.Context, orderID string) (resp dto.PaymentStatusResponse, err error)
	CheckPaymentStatus(ctx context.Context, orderID string) (resp dto.CheckStatusResponse, err error)
	SweepPendingPayments(ctx context.Context, window time.Duration, limit int) (resp dto.SweepResponse, err error)
	OverrideStatus(ctx context.Context, orderID string, status string) (resp dto.PaymentStatusResponse, err error)
	ReplaySideEffects(ctx context.Context, orderID string) (resp dto.SideEffectResponse, err error)
	RunScheduledSweep()
}

type RedemptionService interface {
	Redeem(ctx context.Context, code string, storeID int64) (resp dto.RedeemResponse, err error)
}

type ItemService interface {
	UpdateItemStatus(ctx context.Context, storeID int64, itemID int64, status string) (resp dto.ItemStatusResponse, err error)
}

type Messenger interface {
	Send(ctx context.Context, phone, text string) error
	SendDocument(ctx context.Context, phone, filePath, caption string) error
}

type DocumentRenderer interface {
	Render(ctx context.Context, snapshot domain.InvoiceSnapshot) (path string, err error)
}

type QRRenderer interface {
	Render(ctx context.Context, payload string) (path string, err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, message dto.KafkaMessage) error
}

type Mailer interface {
	SendReceipt(ctx context.Context, to string, snapshot domain.InvoiceSnapshot, invoicePath string) error
}

type SweepLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key string, token string) error
}

type MetricsRecorder interface {
	Transition(from, to, source string)
	Rejected(reason, source string)
	SideEffect(task, outcome string)
	Webhook(outcome string)
	SweepItem(result string)
}
