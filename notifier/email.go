package notifier

import (
	"log"

	"gopkg.in/gomail.v2"

	"orderflow/config"
)

// Notifier delivers a formatted message over an outbound channel.
type Notifier interface {
	Notify(subject, body string) error
}

// EmailNotifier sends HTML mail over SMTP. Send failures are returned to the
// caller, never swallowed, so a failed report run surfaces as failed.
type EmailNotifier struct {
	dialer    *gomail.Dialer
	sender    string
	recipient string
}

func NewEmailNotifier(cfg *config.Config) *EmailNotifier {
	return &EmailNotifier{
		dialer:    gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		sender:    cfg.SenderEmail,
		recipient: cfg.RecipientEmail,
	}
}

func (n *EmailNotifier) Notify(subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.sender)
	msg.SetHeader("To", n.recipient)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := n.dialer.DialAndSend(msg); err != nil {
		log.Printf("Failed to send report mail %q: %v", subject, err)
		return err
	}

	log.Printf("Report mail sent: %s", subject)
	return nil
}
