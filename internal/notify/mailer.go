package notify

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"sync"
	"time"

	"tour-booking/internal/config"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
)

// Sender delivers a rendered message to one recipient
type Sender interface {
	Send(to, subject, htmlBody string) error
}

// sendTimeout bounds one whole SMTP session, dial included
const sendTimeout = 15 * time.Second

// SMTPSender sends mail through a plain-auth SMTP relay
type SMTPSender struct {
	cfg     config.MailConfig
	timeout time.Duration
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, timeout: sendTimeout}
}

func (s *SMTPSender) Send(to, subject, htmlBody string) error {
	message := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-version: 1.0;\r\nContent-Type: text/html; charset=\"UTF-8\";\r\n\r\n%s",
		s.cfg.From, to, subject, htmlBody))

	conn, err := net.DialTimeout("tcp", net.JoinHostPort(s.cfg.Host, s.cfg.Port), s.timeout)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	// smtp.SendMail has no deadline of its own
	if err := conn.SetDeadline(time.Now().Add(s.timeout)); err != nil {
		conn.Close()
		return err
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(message); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

var confirmationTemplate = template.Must(template.New("confirmation").Parse(
	`<div style="font-family: Arial, sans-serif; max-width: 520px; margin: auto; border: 1px solid #1f7a8c; border-radius: 10px; padding: 20px;">
	<h2 style="color: #1f7a8c;">Your booking is confirmed</h2>
	<p>Hello {{.Name}},</p>
	<p>We received your payment for <strong>{{.Tour}}</strong>.</p>
	<table style="font-size: 14px; color: #333;">
		<tr><td>Booking</td><td>#{{.BookingID}}</td></tr>
		<tr><td>Dates</td><td>{{.Start}} to {{.End}}</td></tr>
		<tr><td>Guests</td><td>{{.Guests}} ({{.Tier}})</td></tr>
		<tr><td>Total</td><td>{{printf "%.2f" .Total}}</td></tr>
		<tr><td>Paid with</td><td>{{.Method}}</td></tr>
	</table>
</div>`))

// Mailer sends booking notifications in the background. Delivery failures
// are logged and never returned to the caller.
type Mailer struct {
	sender Sender
	log    *logger.Logger
	wg     sync.WaitGroup
}

// NewMailer returns a mailer; a nil sender turns every send into a log line
func NewMailer(sender Sender, log *logger.Logger) *Mailer {
	return &Mailer{sender: sender, log: log}
}

// BookingConfirmed renders the confirmation and returns before it is sent
func (m *Mailer) BookingConfirmed(booking *models.Booking, payment *models.Payment) {
	if booking.UserEmail == "" {
		return
	}
	if m.sender == nil {
		m.log.Debug("MAIL", fmt.Sprintf("Mail disabled, skipping confirmation for booking %d", booking.ID))
		return
	}

	var body bytes.Buffer
	err := confirmationTemplate.Execute(&body, map[string]interface{}{
		"Name":      booking.UserName,
		"Tour":      booking.TourName,
		"BookingID": booking.ID,
		"Start":     booking.StartDate.String(),
		"End":       booking.EndDate.String(),
		"Guests":    booking.Guests,
		"Tier":      booking.Tier,
		"Total":     booking.TotalPrice,
		"Method":    payment.Method,
	})
	if err != nil {
		m.log.Error("MAIL", fmt.Sprintf("Failed to render confirmation for booking %d: %v", booking.ID, err))
		return
	}

	to := booking.UserEmail
	id := booking.ID
	subject := fmt.Sprintf("Booking #%d confirmed: %s", booking.ID, booking.TourName)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.sender.Send(to, subject, body.String()); err != nil {
			m.log.Error("MAIL", fmt.Sprintf("Failed to send confirmation for booking %d: %v", id, err))
			return
		}
		m.log.Info("MAIL", fmt.Sprintf("Confirmation sent to %s for booking %d", to, id))
	}()
}

// Wait blocks until every queued message was sent or failed
func (m *Mailer) Wait() {
	m.wg.Wait()
}
