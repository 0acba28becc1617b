package storage

import (
	"context"
	"fmt"

	"tour-booking/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, phone, role, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *MySQLStore) CreateUser(ctx context.Context, user *models.User) error {
	s.log.LogDatabase("INSERT", "mysql", fmt.Sprintf("Creating user %s", user.Email))

	ts := now()
	res, err := s.db.ExecContext(ctx, `
    INSERT INTO users (email, password_hash, first_name, last_name, phone, role, created_at, updated_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Phone, string(user.Role), ts, ts)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to create user %s: %s", user.Email, err.Error()))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	user.ID = id
	user.CreatedAt, user.UpdatedAt = ts, ts
	return nil
}

func (s *MySQLStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func (s *MySQLStore) ListUsers(ctx context.Context, filter models.UserFilter, page models.Page) ([]*models.User, int, error) {
	w := userWhere(filter)
	total, err := s.count(ctx, `SELECT COUNT(*) FROM users`+w.SQL(), w.Args())
	if err != nil {
		return nil, 0, err
	}

	limit, limitArgs := limitOffset(page)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+w.SQL()+` ORDER BY created_at DESC, id DESC`+limit,
		append(w.Args(), limitArgs...)...)
	if err != nil {
		s.log.Error("DATABASE", "Failed to list users: "+err.Error())
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration error: %w", err)
	}
	return users, total, nil
}

func (s *MySQLStore) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) error {
	set := userSet(patch)
	if set.Empty() {
		return nil
	}
	set.set("updated_at", now())
	s.log.LogDatabase("UPDATE", "mysql", fmt.Sprintf("Updating user %d", id))
	return s.execAffected(ctx, "update user", `UPDATE users SET `+set.SQL()+` WHERE id = ?`, append(set.Args(), id)...)
}

func (s *MySQLStore) DeleteUser(ctx context.Context, id int64) error {
	s.log.LogDatabase("DELETE", "mysql", fmt.Sprintf("Deleting user %d", id))
	return s.execAffected(ctx, "delete user", `DELETE FROM users WHERE id = ?`, id)
}
