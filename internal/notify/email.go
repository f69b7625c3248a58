package notify

import (
	"fmt"
	"net/smtp"
	"time"

	"payment-gateway-backend/internal/config"
	"payment-gateway-backend/internal/models"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender delivers payment receipts via SMTP. Receipts are best-effort:
// a delivery failure never affects the transaction itself.
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender.
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{cfg: cfg, logger: logger}
}

// Enabled reports whether SMTP delivery is configured.
func (s *Sender) Enabled() bool {
	return s.cfg.SMTPHost != ""
}

// SendPaymentReceipt emails the outcome of a settled transaction.
func (s *Sender) SendPaymentReceipt(to string, tx *models.Transaction) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	if tx.Status == models.StatusSuccess {
		e.Subject = "Payment Confirmation"
	} else {
		e.Subject = "Payment Failed"
	}

	body := "Dear customer,\n\n"
	if tx.Status == models.StatusSuccess {
		body += fmt.Sprintf(
			"Your payment of %s %s was processed successfully.\n",
			tx.Amount.StringFixed(2), tx.Currency,
		)
	} else {
		body += fmt.Sprintf(
			"Your payment of %s %s could not be processed.\n"+
				"Please check with your card issuer or try a different card.\n",
			tx.Amount.StringFixed(2), tx.Currency,
		)
	}
	body += fmt.Sprintf(
		"\nTransaction ID: %d\nPayment method: %s\nProcessed at: %s\n",
		tx.ID, tx.PaymentMethod, tx.UpdatedAt.Format("2006-01-02 15:04:05"),
	)
	if tx.Description != "" {
		body += fmt.Sprintf("Description: %s\n", tx.Description)
	}
	body += "\nBest regards,\nPayment Gateway"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	start := time.Now()
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send receipt to %s: %v", to, err)
		return fmt.Errorf("failed to send receipt: %w", err)
	}

	s.logger.Infof("Receipt sent to %s in %s: %s", to, time.Since(start).Round(time.Millisecond), e.Subject)
	return nil
}
