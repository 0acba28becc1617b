package notify

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/config"
	"tour-booking/internal/logger"
	"tour-booking/internal/models"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(to, subject, htmlBody string) error {
	args := m.Called(to, subject, htmlBody)
	return args.Error(0)
}

func confirmedBooking() (*models.Booking, *models.Payment) {
	booking := &models.Booking{
		ID:         12,
		UserEmail:  "ana@example.com",
		UserName:   "Ana Perez",
		TourName:   "Fjord Cruise",
		StartDate:  models.NewDate(2025, 6, 1),
		EndDate:    models.NewDate(2025, 6, 4),
		Guests:     4,
		Tier:       models.TierPremium,
		TotalPrice: 2000,
	}
	return booking, &models.Payment{Method: models.MethodCash}
}

func TestBookingConfirmedSendsMail(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", "ana@example.com", "Booking #12 confirmed: Fjord Cruise",
		mock.MatchedBy(func(body string) bool {
			return strings.Contains(body, "2025-06-01 to 2025-06-04") &&
				strings.Contains(body, "2000.00")
		})).Return(nil)

	booking, payment := confirmedBooking()
	mailer := NewMailer(sender, logger.NewNop())
	mailer.BookingConfirmed(booking, payment)
	mailer.Wait()

	sender.AssertExpectations(t)
}

func TestBookingConfirmedSwallowsErrors(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	booking, payment := confirmedBooking()
	mailer := NewMailer(sender, logger.NewNop())
	assert.NotPanics(t, func() {
		mailer.BookingConfirmed(booking, payment)
		mailer.Wait()
	})
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestBookingConfirmedWithoutSender(t *testing.T) {
	booking, payment := confirmedBooking()
	assert.NotPanics(t, func() {
		NewMailer(nil, logger.NewNop()).BookingConfirmed(booking, payment)
	})
}

func TestBookingConfirmedDoesNotWaitForDelivery(t *testing.T) {
	release := make(chan struct{})
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).Return(nil)

	booking, payment := confirmedBooking()
	mailer := NewMailer(sender, logger.NewNop())

	returned := make(chan struct{})
	go func() {
		mailer.BookingConfirmed(booking, payment)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("BookingConfirmed blocked on a slow SMTP server")
	}

	close(release)
	mailer.Wait()
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestSMTPSenderTimesOut(t *testing.T) {
	// accepts the connection but never sends the SMTP greeting
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	sender := NewSMTPSender(config.MailConfig{Host: host, Port: port, From: "tours@example.com"})
	sender.timeout = 200 * time.Millisecond

	start := time.Now()
	err = sender.Send("ana@example.com", "subject", "<p>body</p>")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
