package storage

import (
	"context"
	"fmt"

	"tour-booking/internal/models"
)

const bookingFrom = `
    FROM bookings b
    JOIN tours t ON t.id = b.tour_id
    JOIN cities c ON c.id = t.city_id
    JOIN users u ON u.id = b.user_id`

const bookingSelect = `
    SELECT b.id, b.user_id, b.tour_id, b.start_date, b.end_date, b.guests, b.tier,
        b.total_price, b.status, b.special_requests, b.payment_id, b.created_at, b.updated_at,
        t.name AS tour_name, t.duration_days, c.name AS city_name,
        u.email AS user_email, CONCAT(u.first_name, ' ', u.last_name) AS user_name` + bookingFrom

func scanBooking(row scanner) (*models.Booking, error) {
	b := &models.Booking{}
	err := row.Scan(
		&b.ID, &b.UserID, &b.TourID, &b.StartDate, &b.EndDate, &b.Guests, &b.Tier,
		&b.TotalPrice, &b.Status, &b.SpecialRequests, &b.PaymentID, &b.CreatedAt, &b.UpdatedAt,
		&b.TourName, &b.DurationDays, &b.CityName, &b.UserEmail, &b.UserName,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *MySQLStore) CreateBooking(ctx context.Context, booking *models.Booking) error {
	s.log.LogDatabase("INSERT", "mysql", fmt.Sprintf("Creating booking for tour %d by user %d", booking.TourID, booking.UserID))

	ts := now()
	res, err := s.db.ExecContext(ctx, `
    INSERT INTO bookings (
        user_id, tour_id, start_date, end_date, guests, tier, total_price,
        status, special_requests, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.UserID, booking.TourID, booking.StartDate, booking.EndDate, booking.Guests,
		string(booking.Tier), booking.TotalPrice, string(booking.Status), booking.SpecialRequests, ts, ts)
	if err != nil {
		s.log.Error("DATABASE", "Failed to create booking: "+err.Error())
		return fmt.Errorf("failed to create booking: %w", err)
	}
	if booking.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read booking id: %w", err)
	}
	booking.CreatedAt, booking.UpdatedAt = ts, ts

	s.log.LogDatabase("SUCCESS", "mysql", fmt.Sprintf("Booking %d created", booking.ID))
	return nil
}

func (s *MySQLStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return b, nil
}

func (s *MySQLStore) ListBookings(ctx context.Context, filter models.BookingFilter, page models.Page) ([]*models.Booking, int, error) {
	w := bookingWhere(filter)
	total, err := s.count(ctx, `SELECT COUNT(*)`+bookingFrom+w.SQL(), w.Args())
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitOffset(page)
	rows, err := s.db.QueryContext(ctx,
		bookingSelect+w.SQL()+` ORDER BY b.created_at DESC, b.id DESC`+limit,
		append(w.Args(), limitArgs...)...)
	if err != nil {
		s.log.Error("DATABASE", "Failed to list bookings: "+err.Error())
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return bookings, total, nil
}

func (s *MySQLStore) UpdateBooking(ctx context.Context, id int64, patch models.BookingPatch) error {
	set := bookingSet(patch)
	if set.Empty() {
		return nil
	}
	set.set("updated_at", now())
	s.log.LogDatabase("UPDATE", "mysql", fmt.Sprintf("Updating booking %d", id))
	return s.execAffected(ctx, "update booking", `UPDATE bookings SET `+set.SQL()+` WHERE id = ?`, append(set.Args(), id)...)
}

func (s *MySQLStore) DeleteBooking(ctx context.Context, id int64) error {
	s.log.LogDatabase("DELETE", "mysql", fmt.Sprintf("Deleting booking %d", id))
	return s.execAffected(ctx, "delete booking", `DELETE FROM bookings WHERE id = ?`, id)
}

func (s *MySQLStore) HasCompletedBooking(ctx context.Context, userID, tourID int64) (bool, error) {
	n, err := s.count(ctx,
		`SELECT COUNT(*) FROM bookings WHERE user_id = ? AND tour_id = ? AND status = 'completed'`,
		[]interface{}{userID, tourID})
	return n > 0, err
}

func (s *MySQLStore) BookingStats(ctx context.Context) (*models.BookingStats, error) {
	s.log.LogDatabase("SELECT", "mysql", "Computing booking statistics")

	stats := &models.BookingStats{ByStatus: map[models.BookingStatus]int{}, TopTours: []models.TopTour{}}
	for _, st := range models.BookingStatuses {
		stats.ByStatus[st] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings by status: %w", err)
	}
	for rows.Next() {
		var status models.BookingStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.ByStatus[status] = n
		stats.TotalBookings += n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = 'completed'`,
	).Scan(&stats.TotalRevenue); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(AVG(total_price), 0) FROM bookings WHERE status <> 'cancelled'`,
	).Scan(&stats.AverageBookingValue); err != nil {
		return nil, fmt.Errorf("failed to average booking value: %w", err)
	}
	stats.TotalRevenue = models.RoundMoney(stats.TotalRevenue)
	stats.AverageBookingValue = models.RoundMoney(stats.AverageBookingValue)

	top, err := s.db.QueryContext(ctx, `
    SELECT t.id, t.name, COUNT(b.id) AS bookings, COALESCE(SUM(b.total_price), 0) AS revenue
    FROM bookings b
    JOIN tours t ON t.id = b.tour_id
    WHERE b.status <> 'cancelled'
    GROUP BY t.id, t.name
    ORDER BY bookings DESC, revenue DESC, t.id ASC
    LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("failed to rank tours: %w", err)
	}
	defer top.Close()
	for top.Next() {
		var tt models.TopTour
		if err := top.Scan(&tt.TourID, &tt.Name, &tt.Bookings, &tt.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan top tour: %w", err)
		}
		tt.Revenue = models.RoundMoney(tt.Revenue)
		stats.TopTours = append(stats.TopTours, tt)
	}
	return stats, top.Err()
}
