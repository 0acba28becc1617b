package storage

import (
	"context"
	"fmt"

	"tour-booking/internal/models"
)

const tourFrom = `
    FROM tours t
    JOIN cities c ON c.id = t.city_id
    JOIN categories cat ON cat.id = t.category_id`

const tourSelect = `
    SELECT t.id, t.city_id, t.category_id, t.name, t.description, t.duration_days,
        t.price_standard, t.price_premium, t.max_guests, t.is_active, t.images,
        t.created_at, t.updated_at,
        c.name AS city_name, c.country, cat.name AS category_name,
        COALESCE((SELECT AVG(r.rating) FROM reviews r WHERE r.tour_id = t.id AND r.is_published = 1), 0) AS avg_rating,
        (SELECT COUNT(*) FROM reviews r WHERE r.tour_id = t.id AND r.is_published = 1) AS review_count,
        (SELECT COUNT(*) FROM bookings b WHERE b.tour_id = t.id AND b.status <> 'cancelled') AS booking_count` + tourFrom

func scanTour(row scanner) (*models.Tour, error) {
	t := &models.Tour{}
	err := row.Scan(
		&t.ID, &t.CityID, &t.CategoryID, &t.Name, &t.Description, &t.DurationDays,
		&t.PriceStandard, &t.PricePremium, &t.MaxGuests, &t.IsActive, &t.Images,
		&t.CreatedAt, &t.UpdatedAt,
		&t.CityName, &t.Country, &t.CategoryName, &t.AvgRating, &t.ReviewCount, &t.BookingCount,
	)
	if err != nil {
		return nil, err
	}
	t.AvgRating = models.RoundMoney(t.AvgRating)
	return t, nil
}

func (s *MySQLStore) CreateTour(ctx context.Context, tour *models.Tour) error {
	s.log.LogDatabase("INSERT", "mysql", fmt.Sprintf("Creating tour %s", tour.Name))

	ts := now()
	res, err := s.db.ExecContext(ctx, `
    INSERT INTO tours (
        city_id, category_id, name, description, duration_days, price_standard,
        price_premium, max_guests, is_active, images, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tour.CityID, tour.CategoryID, tour.Name, tour.Description, tour.DurationDays, tour.PriceStandard,
		tour.PricePremium, tour.MaxGuests, tour.IsActive, tour.Images, ts, ts)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to create tour %s: %s", tour.Name, err.Error()))
		return fmt.Errorf("failed to create tour: %w", err)
	}
	if tour.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read tour id: %w", err)
	}
	tour.CreatedAt, tour.UpdatedAt = ts, ts
	return nil
}

func (s *MySQLStore) GetTour(ctx context.Context, id int64) (*models.Tour, error) {
	t, err := scanTour(s.db.QueryRowContext(ctx, tourSelect+` WHERE t.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return t, nil
}

func (s *MySQLStore) ListTours(ctx context.Context, filter models.TourFilter, page models.Page) ([]*models.Tour, int, error) {
	w := tourWhere(filter)
	total, err := s.count(ctx, `SELECT COUNT(*)`+tourFrom+w.SQL(), w.Args())
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitOffset(page)
	query := tourSelect + w.SQL() + tourOrderBy(filter.Sort) + limit
	s.log.LogDatabase("SELECT", "mysql", fmt.Sprintf("Listing tours (page %d, limit %d)", page.Page, page.Limit))

	rows, err := s.db.QueryContext(ctx, query, append(w.Args(), limitArgs...)...)
	if err != nil {
		s.log.Error("DATABASE", "Failed to list tours: "+err.Error())
		return nil, 0, fmt.Errorf("failed to list tours: %w", err)
	}
	defer rows.Close()

	tours := []*models.Tour{}
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan tour: %w", err)
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return tours, total, nil
}

func (s *MySQLStore) UpdateTour(ctx context.Context, id int64, patch models.TourPatch) error {
	set := tourSet(patch)
	if set.Empty() {
		return nil
	}
	set.set("updated_at", now())
	s.log.LogDatabase("UPDATE", "mysql", fmt.Sprintf("Updating tour %d", id))
	return s.execAffected(ctx, "update tour", `UPDATE tours SET `+set.SQL()+` WHERE id = ?`, append(set.Args(), id)...)
}

func (s *MySQLStore) DeleteTour(ctx context.Context, id int64) error {
	s.log.LogDatabase("DELETE", "mysql", fmt.Sprintf("Deleting tour %d", id))
	return s.execAffected(ctx, "delete tour", `DELETE FROM tours WHERE id = ?`, id)
}

// CountOpenBookings counts pending and confirmed bookings of a tour
func (s *MySQLStore) CountOpenBookings(ctx context.Context, tourID int64) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM bookings WHERE tour_id = ? AND status IN ('pending', 'confirmed')`,
		[]interface{}{tourID})
}
