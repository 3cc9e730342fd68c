// Package notify sends discrepancy alerts over SMTP.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/tasas/ratesync/internal/domain"
)

// SmtpConfig holds the outbound mail settings.
type SmtpConfig struct {
	Server       string
	Port         int
	EmailAddress string
	Password     string
}

// Notifier mails reconciliation findings to the configured recipients. A
// zero-value recipients list disables sending.
type Notifier struct {
	smtp       SmtpConfig
	recipients []string
}

func NewNotifier(cfg SmtpConfig, recipients []string) *Notifier {
	return &Notifier{smtp: cfg, recipients: recipients}
}

// Enabled reports whether the notifier has somewhere to send.
func (n *Notifier) Enabled() bool {
	return len(n.recipients) > 0 && n.smtp.Server != ""
}

// DetectionAlert mails a summary of a detection pass that found new
// discrepancies.
func (n *Notifier) DetectionAlert(ledgerID string, report *domain.Report) error {
	if !n.Enabled() {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Gap detection for ledger %q found new discrepancies.\n\n", ledgerID)
	fmt.Fprintf(&b, "Missing days:      %d\n", report.Missing)
	fmt.Fprintf(&b, "Conflicting days:  %d\n", report.Conflicting)
	fmt.Fprintf(&b, "Checked through:   %s\n", report.LastChecked.Format("2006-01-02"))

	e := email.NewEmail()
	e.From = n.smtp.EmailAddress
	e.To = n.recipients
	e.Subject = fmt.Sprintf("[ratesync] %d missing / %d conflicting on %s",
		report.Missing, report.Conflicting, ledgerID)
	e.Text = []byte(b.String())

	addr := fmt.Sprintf("%s:%d", n.smtp.Server, n.smtp.Port)
	auth := smtp.PlainAuth("", n.smtp.EmailAddress, n.smtp.Password, n.smtp.Server)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	return nil
}
