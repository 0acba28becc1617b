package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tour-booking/internal/models"
)

const paymentColumns = `id, booking_id, amount, method, status, transaction_id, created_at, updated_at`

func scanPayment(row scanner) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.ID, &p.BookingID, &p.Amount, &p.Method, &p.Status, &p.TransactionID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RecordPayment runs the payment insert and the booking confirmation in one
// transaction. The booking row stays locked until commit so a concurrent
// attempt blocks and then observes payment_id.
func (s *MySQLStore) RecordPayment(ctx context.Context, bookingID int64, payment *models.Payment) (err error) {
	s.log.LogPayment("BEGIN", fmt.Sprintf("booking-%d", bookingID), "Starting payment transaction")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.log.Error("DATABASE", fmt.Sprintf("Rollback failed for booking %d: %s", bookingID, rbErr.Error()))
			}
			s.log.LogPayment("ROLLBACK", fmt.Sprintf("booking-%d", bookingID), err.Error())
		}
	}()

	var (
		paymentID  sql.NullInt64
		status     models.BookingStatus
		totalPrice float64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT payment_id, status, total_price FROM bookings WHERE id = ? FOR UPDATE`, bookingID,
	).Scan(&paymentID, &status, &totalPrice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock booking: %w", err)
	}
	if paymentID.Valid {
		return ErrAlreadyPaid
	}
	if status.Closed() {
		return ErrBookingClosed
	}

	ts := now()
	payment.Amount = totalPrice
	payment.Status = models.PaymentCompleted
	payment.BookingID = &bookingID

	res, err := tx.ExecContext(ctx, `
    INSERT INTO payments (booking_id, amount, method, status, transaction_id, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?)`,
		bookingID, payment.Amount, string(payment.Method), string(payment.Status), payment.TransactionID, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	if payment.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read payment id: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE bookings SET payment_id = ?, status = ?, updated_at = ? WHERE id = ?`,
		payment.ID, string(models.BookingConfirmed), ts, bookingID,
	); err != nil {
		return fmt.Errorf("failed to confirm booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit payment: %w", err)
	}

	payment.CreatedAt, payment.UpdatedAt = ts, ts
	s.log.LogPayment("COMMIT", fmt.Sprintf("payment-%d", payment.ID),
		fmt.Sprintf("Payment %.2f recorded for booking %d", payment.Amount, bookingID))
	return nil
}

func (s *MySQLStore) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *MySQLStore) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE transaction_id = ? ORDER BY id DESC LIMIT 1`, transactionID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (s *MySQLStore) ListPayments(ctx context.Context, filter models.PaymentFilter, page models.Page) ([]*models.Payment, int, error) {
	w := paymentWhere(filter)
	total, err := s.count(ctx, `SELECT COUNT(*) FROM payments`+w.SQL(), w.Args())
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitOffset(page)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments`+w.SQL()+` ORDER BY created_at DESC, id DESC`+limit,
		append(w.Args(), limitArgs...)...)
	if err != nil {
		s.log.Error("DATABASE", "Failed to list payments: "+err.Error())
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, total, rows.Err()
}

func (s *MySQLStore) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) error {
	s.log.LogDatabase("UPDATE", "mysql", fmt.Sprintf("Payment %d status -> %s", id, status))
	return s.execAffected(ctx, "update payment",
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`, string(status), now(), id)
}
