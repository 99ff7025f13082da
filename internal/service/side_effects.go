package service

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/internal/dto"
	"github.com/alimikegami/marketplace/payment-service/internal/repository"
	"github.com/alimikegami/marketplace/payment-service/pkg/errs"
	"github.com/alimikegami/marketplace/payment-service/pkg/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	taskInvoice      = "invoice"
	taskQRCode       = "qr_code"
	taskNotification = "notification"
	taskPaidEvent    = "paid_event"

	outcomeDone    = "done"
	outcomeSkipped = "skipped"
	outcomeFailed  = "failed"

	dispatchTimeout = 2 * time.Minute
)

type SideEffectDeps struct {
	Renderer      DocumentRenderer
	QR            QRRenderer
	Messenger     Messenger
	Mailer        Mailer
	Publisher     EventPublisher
	PublicBaseURL string
	InvoiceDir    string
}

type DispatchOptions struct {
	// ForceNotify resends the paid notification even when it was already claimed.
	ForceNotify bool
}

// SideEffectDispatcher runs the post-payment tasks. Every task guards itself
// with a marker column so a repeated run does nothing twice.
type SideEffectDispatcher struct {
	repository repository.TransactionRepository
	deps       SideEffectDeps
	metrics    MetricsRecorder
	async      bool
	wg         sync.WaitGroup
}

func CreateSideEffectDispatcher(repository repository.TransactionRepository, deps SideEffectDeps, metrics MetricsRecorder, async bool) *SideEffectDispatcher {
	return &SideEffectDispatcher{
		repository: repository,
		deps:       deps,
		metrics:    metrics,
		async:      async,
	}
}

// Dispatch runs the tasks for a freshly paid transaction. Failures are logged
// and never reach the caller.
func (d *SideEffectDispatcher) Dispatch(ctx context.Context, code string) {
	if !d.async {
		if _, err := d.Run(ctx, code, DispatchOptions{}); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("component", "Dispatch").Str("transaction_code", code).Msg("")
		}
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
		defer cancel()

		if _, err := d.Run(ctx, code, DispatchOptions{}); err != nil {
			log.Ctx(ctx).Error().Err(err).Str("component", "Dispatch").Str("transaction_code", code).Msg("")
		}
	}()
}

// Wait blocks until every asynchronous dispatch has finished.
func (d *SideEffectDispatcher) Wait() {
	d.wg.Wait()
}

func (d *SideEffectDispatcher) Run(ctx context.Context, code string, opts DispatchOptions) (resp dto.SideEffectResponse, err error) {
	trx, err := d.repository.GetTransactionByCode(ctx, code)
	if err != nil {
		return resp, fmt.Errorf("load transaction %s: %w", code, err)
	}
	if trx.ID == 0 {
		return resp, errs.ErrNotFound
	}
	if trx.PaymentStatus != domain.PaymentStatusPaid {
		return resp, errs.ErrNotPaid
	}

	logger := log.Ctx(ctx).With().Str("transaction_code", trx.TransactionCode).Logger()

	trx = d.issueInvoice(ctx, &logger, trx)
	trx = d.issueQRCode(ctx, &logger, trx)
	notified := d.notify(ctx, &logger, trx, opts.ForceNotify)
	d.publishPaid(ctx, &logger, trx)

	return dto.SideEffectResponse{
		TransactionCode: trx.TransactionCode,
		InvoiceURL:      trx.InvoiceURL,
		QRCode:          trx.QRCode,
		Notified:        notified,
	}, nil
}

func (d *SideEffectDispatcher) issueInvoice(ctx context.Context, logger *zerolog.Logger, trx domain.Transaction) domain.Transaction {
	if trx.InvoiceURL != nil {
		d.metrics.SideEffect(taskInvoice, outcomeSkipped)
		return trx
	}

	file, err := d.deps.Renderer.Render(ctx, domain.NewInvoiceSnapshot(trx))
	if err != nil {
		d.metrics.SideEffect(taskInvoice, outcomeFailed)
		logger.Error().Err(err).Str("component", "issueInvoice").Msg("")
		return trx
	}

	ref := d.fileURL("invoices", file)
	updated, err := d.repository.SetInvoiceURL(ctx, trx.ID, ref)
	if err != nil {
		d.metrics.SideEffect(taskInvoice, outcomeFailed)
		logger.Error().Err(err).Str("component", "issueInvoice").Msg("")
		return trx
	}
	if !updated {
		d.metrics.SideEffect(taskInvoice, outcomeSkipped)
		return d.reload(ctx, logger, trx)
	}

	d.metrics.SideEffect(taskInvoice, outcomeDone)
	trx.InvoiceURL = &ref
	logger.Info().Str("invoice_url", ref).Msg("invoice issued")
	return trx
}

func (d *SideEffectDispatcher) issueQRCode(ctx context.Context, logger *zerolog.Logger, trx domain.Transaction) domain.Transaction {
	if !trx.HasAppointment() || trx.QRCode != nil {
		d.metrics.SideEffect(taskQRCode, outcomeSkipped)
		return trx
	}

	file, err := d.deps.QR.Render(ctx, trx.TransactionCode)
	if err != nil {
		d.metrics.SideEffect(taskQRCode, outcomeFailed)
		logger.Error().Err(err).Str("component", "issueQRCode").Msg("")
		return trx
	}

	ref := d.fileURL("qrcodes", file)
	updated, err := d.repository.SetQRCode(ctx, trx.ID, ref)
	if err != nil {
		d.metrics.SideEffect(taskQRCode, outcomeFailed)
		logger.Error().Err(err).Str("component", "issueQRCode").Msg("")
		return trx
	}
	if !updated {
		d.metrics.SideEffect(taskQRCode, outcomeSkipped)
		return d.reload(ctx, logger, trx)
	}

	d.metrics.SideEffect(taskQRCode, outcomeDone)
	trx.QRCode = &ref
	logger.Info().Str("qr_code", ref).Msg("appointment qr code issued")
	return trx
}

func (d *SideEffectDispatcher) notify(ctx context.Context, logger *zerolog.Logger, trx domain.Transaction, force bool) bool {
	if !force {
		claimed, err := d.repository.ClaimPaidNotification(ctx, trx.ID, time.Now().Unix())
		if err != nil {
			d.metrics.SideEffect(taskNotification, outcomeFailed)
			logger.Error().Err(err).Str("component", "notify").Msg("")
			return false
		}
		if !claimed {
			d.metrics.SideEffect(taskNotification, outcomeSkipped)
			return false
		}
	}

	snapshot := domain.NewInvoiceSnapshot(trx)
	message := paidMessage(trx)
	phone := utils.NormalizePhoneNumber(trx.CustomerPhone)

	invoicePath := ""
	if trx.InvoiceURL != nil {
		invoicePath = filepath.Join(d.deps.InvoiceDir, path.Base(*trx.InvoiceURL))
	}

	var err error
	if invoicePath != "" {
		err = d.deps.Messenger.SendDocument(ctx, phone, invoicePath, message)
	} else {
		err = d.deps.Messenger.Send(ctx, phone, message)
	}
	if err != nil {
		d.metrics.SideEffect(taskNotification, outcomeFailed)
		logger.Error().Err(err).Str("component", "notify").Msg("whatsapp notification failed")
	} else {
		d.metrics.SideEffect(taskNotification, outcomeDone)
	}

	if snapshot.CustomerEmail != "" {
		if err := d.deps.Mailer.SendReceipt(ctx, snapshot.CustomerEmail, snapshot, invoicePath); err != nil {
			logger.Error().Err(err).Str("component", "notify").Msg("email receipt failed")
		}
	}

	return err == nil
}

func (d *SideEffectDispatcher) publishPaid(ctx context.Context, logger *zerolog.Logger, trx domain.Transaction) {
	event := dto.PaymentEvent{
		TransactionCode: trx.TransactionCode,
		OrderID:         trx.OrderID,
		CurrentStatus:   string(trx.PaymentStatus),
		Source:          taskPaidEvent,
		TotalAmount:     trx.TotalAmount.StringFixed(2),
		NeedsReview:     trx.NeedsReview,
		OccurredAt:      time.Now().Unix(),
	}

	err := d.deps.Publisher.Publish(ctx, trx.TransactionCode, dto.KafkaMessage{
		EventType: dto.EventPaymentPaid,
		Data:      event,
	})
	if err != nil {
		d.metrics.SideEffect(taskPaidEvent, outcomeFailed)
		logger.Error().Err(err).Str("component", "publishPaid").Msg("")
		return
	}
	d.metrics.SideEffect(taskPaidEvent, outcomeDone)
}

func (d *SideEffectDispatcher) reload(ctx context.Context, logger *zerolog.Logger, trx domain.Transaction) domain.Transaction {
	fresh, err := d.repository.GetTransactionByCode(ctx, trx.TransactionCode)
	if err != nil || fresh.ID == 0 {
		logger.Warn().Err(err).Str("component", "reload").Msg("could not reload transaction")
		return trx
	}
	return fresh
}

func (d *SideEffectDispatcher) fileURL(kind, file string) string {
	return strings.TrimRight(d.deps.PublicBaseURL, "/") + "/files/" + kind + "/" + filepath.Base(file)
}

func paidMessage(trx domain.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Halo %s, pembayaran untuk transaksi %s sebesar %s telah kami terima.",
		trx.CustomerName, trx.TransactionCode, utils.FormatRupiah(trx.TotalAmount))
	if trx.HasAppointment() {
		b.WriteString(" Tunjukkan kode QR atau kode transaksi ini saat datang ke toko.")
	}
	if trx.InvoiceURL != nil {
		fmt.Fprintf(&b, "\nInvoice: %s", *trx.InvoiceURL)
	}
	return b.String()
}

func pendingMessage(trx domain.Transaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Halo %s, pesanan %s sebesar %s telah dibuat dan menunggu pembayaran.",
		trx.CustomerName, trx.TransactionCode, utils.FormatRupiah(trx.TotalAmount))
	if trx.PaymentURL != nil {
		fmt.Fprintf(&b, "\nSelesaikan pembayaran di: %s", *trx.PaymentURL)
	}
	if trx.PaymentExpiry != nil {
		fmt.Fprintf(&b, "\nBatas pembayaran: %s", utils.ConvertDateTimeToHumanReadableFormat(*trx.PaymentExpiry))
	}
	return b.String()
}
