package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/alimikegami/marketplace/payment-service/config"
	"github.com/alimikegami/marketplace/payment-service/internal/domain"
	"github.com/alimikegami/marketplace/payment-service/pkg/utils"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

type Mailer struct {
	config config.SMTPConfig
	send   func(m *gomail.Message) error
}

func CreateMailer(conf config.SMTPConfig) *Mailer {
	mailer := &Mailer{config: conf}
	mailer.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(conf.Host, conf.Port, conf.Username, conf.Password)
		return d.DialAndSend(m)
	}
	return mailer
}

func (m *Mailer) Enabled() bool {
	return m.config.Host != "" && m.config.FromAddr != ""
}

// SendReceipt mails the payment receipt, attaching the invoice when a path
// is given.
func (m *Mailer) SendReceipt(ctx context.Context, to string, snapshot domain.InvoiceSnapshot, invoicePath string) error {
	if !m.Enabled() {
		log.Ctx(ctx).Debug().Str("component", "SendReceipt").Msg("smtp not configured, receipt skipped")
		return nil
	}

	if err := m.send(m.buildReceipt(to, snapshot, invoicePath)); err != nil {
		return fmt.Errorf("send receipt: %w", err)
	}

	return nil
}

func (m *Mailer) buildReceipt(to string, snapshot domain.InvoiceSnapshot, invoicePath string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.config.FromAddr, m.config.FromName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Pembayaran diterima - "+snapshot.TransactionCode)

	var body strings.Builder
	fmt.Fprintf(&body, "<p>Halo %s,</p>", html.EscapeString(snapshot.CustomerName))
	fmt.Fprintf(&body, "<p>Pembayaran untuk transaksi <b>%s</b> sebesar <b>%s</b> telah kami terima.</p>",
		html.EscapeString(snapshot.TransactionCode), utils.FormatRupiah(snapshot.Total))
	body.WriteString("<ul>")
	for _, line := range snapshot.Lines {
		fmt.Fprintf(&body, "<li>%s x%d - %s</li>", html.EscapeString(line.Name), line.Quantity, utils.FormatRupiah(line.Subtotal))
	}
	body.WriteString("</ul>")
	msg.SetBody("text/html", body.String())

	if invoicePath != "" {
		msg.Attach(invoicePath)
	}

	return msg
}
