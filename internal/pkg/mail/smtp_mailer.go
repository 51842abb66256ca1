package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/fieldpass/fieldpass/internal/pkg/env"
)

// SendMail sends an HTML email via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}

// SendPaymentReceipt notifies an academy contact that a payment was booked.
func SendPaymentReceipt(to, academyName string, amountCents int64, currency string) error {
	subject := "FieldPass payment received"
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>we received your subscription payment of <b>%.2f %s</b>. Thank you!</p>",
		academyName, float64(amountCents)/100, currency,
	)
	return SendMail(to, subject, body)
}

// SendSyncFailureAlert notifies the platform operators about a billing sync
// run that ended with errors.
func SendSyncFailureAlert(errs []string) error {
	to := env.GetEnv("OPS_ALERT_EMAIL", "")
	if to == "" || len(errs) == 0 {
		return nil
	}
	body := "<p>The nightly billing sync reported errors:</p><ul>"
	for _, e := range errs {
		body += "<li>" + e + "</li>"
	}
	body += "</ul>"
	return SendMail(to, "FieldPass billing sync errors", body)
}

// SendDocumentExpiryNotice warns an academy about a compliance document that
// is about to expire.
func SendDocumentExpiryNotice(to, academyName, docType, fileName string, daysLeft int) error {
	subject := "FieldPass compliance document expiring"
	body := fmt.Sprintf(
		"<p>Hello %s,</p><p>your document <b>%s</b> (%s) expires in %d days. Please upload a replacement.</p>",
		academyName, fileName, docType, daysLeft,
	)
	return SendMail(to, subject, body)
}
