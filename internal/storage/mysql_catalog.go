package storage

import (
	"context"
	"fmt"

	"tour-booking/internal/models"
)

const citySelect = `
    SELECT c.id, c.name, c.country, c.description, c.image_url, c.created_at,
        (SELECT COUNT(*) FROM tours t WHERE t.city_id = c.id AND t.is_active = 1) AS tour_count
    FROM cities c`

func scanCity(row scanner) (*models.City, error) {
	c := &models.City{}
	if err := row.Scan(&c.ID, &c.Name, &c.Country, &c.Description, &c.ImageURL, &c.CreatedAt, &c.TourCount); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *MySQLStore) CreateCity(ctx context.Context, city *models.City) error {
	s.log.LogDatabase("INSERT", "mysql", fmt.Sprintf("Creating city %s", city.Name))

	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO cities (name, country, description, image_url, created_at) VALUES (?, ?, ?, ?, ?)`,
		city.Name, city.Country, city.Description, city.ImageURL, ts)
	if err != nil {
		return fmt.Errorf("failed to create city: %w", err)
	}
	if city.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read city id: %w", err)
	}
	city.CreatedAt = ts
	return nil
}

func (s *MySQLStore) GetCity(ctx context.Context, id int64) (*models.City, error) {
	c, err := scanCity(s.db.QueryRowContext(ctx, citySelect+` WHERE c.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *MySQLStore) ListCities(ctx context.Context, filter models.NameFilter, page models.Page) ([]*models.City, int, error) {
	w := nameWhere(filter, "c.name", "c.country")
	total, err := s.count(ctx, `SELECT COUNT(*) FROM cities c`+w.SQL(), w.Args())
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitOffset(page)
	rows, err := s.db.QueryContext(ctx, citySelect+w.SQL()+` ORDER BY c.name ASC`+limit, append(w.Args(), limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cities: %w", err)
	}
	defer rows.Close()

	cities := []*models.City{}
	for rows.Next() {
		c, err := scanCity(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, c)
	}
	return cities, total, rows.Err()
}

func (s *MySQLStore) UpdateCity(ctx context.Context, id int64, patch models.CityPatch) error {
	set := citySet(patch)
	if set.Empty() {
		return nil
	}
	s.log.LogDatabase("UPDATE", "mysql", fmt.Sprintf("Updating city %d", id))
	return s.execAffected(ctx, "update city", `UPDATE cities SET `+set.SQL()+` WHERE id = ?`, append(set.Args(), id)...)
}

func (s *MySQLStore) DeleteCity(ctx context.Context, id int64) error {
	s.log.LogDatabase("DELETE", "mysql", fmt.Sprintf("Deleting city %d", id))
	return s.execAffected(ctx, "delete city", `DELETE FROM cities WHERE id = ?`, id)
}

const categorySelect = `
    SELECT cat.id, cat.name, cat.description, cat.icon, cat.created_at,
        (SELECT COUNT(*) FROM tours t WHERE t.category_id = cat.id AND t.is_active = 1) AS tour_count
    FROM categories cat`

func scanCategory(row scanner) (*models.Category, error) {
	c := &models.Category{}
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.CreatedAt, &c.TourCount); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *MySQLStore) CreateCategory(ctx context.Context, category *models.Category) error {
	s.log.LogDatabase("INSERT", "mysql", fmt.Sprintf("Creating category %s", category.Name))

	ts := now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (name, description, icon, created_at) VALUES (?, ?, ?, ?)`,
		category.Name, category.Description, category.Icon, ts)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	if category.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read category id: %w", err)
	}
	category.CreatedAt = ts
	return nil
}

func (s *MySQLStore) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+` WHERE cat.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (s *MySQLStore) ListCategories(ctx context.Context, filter models.NameFilter, page models.Page) ([]*models.Category, int, error) {
	w := nameWhere(filter, "cat.name", "cat.description")
	total, err := s.count(ctx, `SELECT COUNT(*) FROM categories cat`+w.SQL(), w.Args())
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitOffset(page)
	rows, err := s.db.QueryContext(ctx, categorySelect+w.SQL()+` ORDER BY cat.name ASC`+limit, append(w.Args(), limitArgs...)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, total, rows.Err()
}

func (s *MySQLStore) UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) error {
	set := categorySet(patch)
	if set.Empty() {
		return nil
	}
	s.log.LogDatabase("UPDATE", "mysql", fmt.Sprintf("Updating category %d", id))
	return s.execAffected(ctx, "update category", `UPDATE categories SET `+set.SQL()+` WHERE id = ?`, append(set.Args(), id)...)
}

func (s *MySQLStore) DeleteCategory(ctx context.Context, id int64) error {
	s.log.LogDatabase("DELETE", "mysql", fmt.Sprintf("Deleting category %d", id))
	return s.execAffected(ctx, "delete category", `DELETE FROM categories WHERE id = ?`, id)
}
