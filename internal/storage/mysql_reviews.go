package storage

import (
	"context"
	"fmt"

	"tour-booking/internal/models"
)

const reviewFrom = `
    FROM reviews r
    JOIN users u ON u.id = r.user_id
    JOIN tours t ON t.id = r.tour_id`

const reviewSelect = `
    SELECT r.id, r.user_id, r.tour_id, r.rating, r.comment, r.is_verified, r.is_published,
        r.created_at, r.updated_at,
        CONCAT(u.first_name, ' ', u.last_name) AS user_name, t.name AS tour_name` + reviewFrom

func scanReview(row scanner) (*models.Review, error) {
	r := &models.Review{}
	err := row.Scan(&r.ID, &r.UserID, &r.TourID, &r.Rating, &r.Comment, &r.IsVerified, &r.IsPublished,
		&r.CreatedAt, &r.UpdatedAt, &r.UserName, &r.TourName)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *MySQLStore) CreateReview(ctx context.Context, review *models.Review) error {
	s.log.LogDatabase("INSERT", "mysql", fmt.Sprintf("Creating review for tour %d by user %d", review.TourID, review.UserID))

	ts := now()
	res, err := s.db.ExecContext(ctx, `
    INSERT INTO reviews (user_id, tour_id, rating, comment, is_verified, is_published, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		review.UserID, review.TourID, review.Rating, review.Comment, review.IsVerified, review.IsPublished, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}
	if review.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read review id: %w", err)
	}
	review.CreatedAt, review.UpdatedAt = ts, ts
	return nil
}

func (s *MySQLStore) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx, reviewSelect+` WHERE r.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *MySQLStore) FindReview(ctx context.Context, userID, tourID int64) (*models.Review, error) {
	r, err := scanReview(s.db.QueryRowContext(ctx, reviewSelect+` WHERE r.user_id = ? AND r.tour_id = ?`, userID, tourID))
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func (s *MySQLStore) ListReviews(ctx context.Context, filter models.ReviewFilter, page models.Page) ([]*models.Review, int, error) {
	w := reviewWhere(filter)
	total, err := s.count(ctx, `SELECT COUNT(*)`+reviewFrom+w.SQL(), w.Args())
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitOffset(page)
	rows, err := s.db.QueryContext(ctx,
		reviewSelect+w.SQL()+` ORDER BY r.created_at DESC, r.id DESC`+limit,
		append(w.Args(), limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*models.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, total, rows.Err()
}

func (s *MySQLStore) UpdateReview(ctx context.Context, id int64, patch models.ReviewPatch) error {
	set := reviewSet(patch)
	if set.Empty() {
		return nil
	}
	set.set("updated_at", now())
	s.log.LogDatabase("UPDATE", "mysql", fmt.Sprintf("Updating review %d", id))
	return s.execAffected(ctx, "update review", `UPDATE reviews SET `+set.SQL()+` WHERE id = ?`, append(set.Args(), id)...)
}

func (s *MySQLStore) DeleteReview(ctx context.Context, id int64) error {
	s.log.LogDatabase("DELETE", "mysql", fmt.Sprintf("Deleting review %d", id))
	return s.execAffected(ctx, "delete review", `DELETE FROM reviews WHERE id = ?`, id)
}
