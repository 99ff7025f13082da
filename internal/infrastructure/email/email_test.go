package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/alimikegami/marketplace/payment-service/config"
	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func snapshot() domain.InvoiceSnapshot {
	return domain.InvoiceSnapshot{
		TransactionCode: "TRX-1",
		CustomerName:    "Budi",
		Total:           decimal.NewFromInt(100000),
		Lines: []domain.InvoiceLine{
			{Name: "Konsultasi", Quantity: 2, Subtotal: decimal.NewFromInt(100000)},
		},
	}
}

func TestSendReceipt(t *testing.T) {
	mailer := CreateMailer(config.SMTPConfig{Host: "smtp.example.com", Port: 587, FromAddr: "billing@example.com", FromName: "Marketplace"})

	var sent []*gomail.Message
	mailer.send = func(m *gomail.Message) error {
		sent = append(sent, m)
		return nil
	}

	require.NoError(t, mailer.SendReceipt(context.Background(), "budi@example.com", snapshot(), ""))
	require.Len(t, sent, 1)

	assert.Equal(t, []string{"budi@example.com"}, sent[0].GetHeader("To"))
	assert.Equal(t, []string{"Pembayaran diterima - TRX-1"}, sent[0].GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := sent[0].WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "<billing@example.com>")
}

func TestSendReceiptFailure(t *testing.T) {
	mailer := CreateMailer(config.SMTPConfig{Host: "smtp.example.com", FromAddr: "billing@example.com"})
	mailer.send = func(m *gomail.Message) error {
		return errors.New("535 authentication failed")
	}

	assert.ErrorContains(t, mailer.SendReceipt(context.Background(), "budi@example.com", snapshot(), ""), "535")
}

func TestSendReceiptDisabled(t *testing.T) {
	mailer := CreateMailer(config.SMTPConfig{})
	mailer.send = func(m *gomail.Message) error {
		t.Fatal("must not send without smtp config")
		return nil
	}

	assert.False(t, mailer.Enabled())
	assert.NoError(t, mailer.SendReceipt(context.Background(), "budi@example.com", snapshot(), ""))
}
