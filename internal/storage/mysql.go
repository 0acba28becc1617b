package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"tour-booking/internal/config"
	"tour-booking/internal/logger"
)

type MySQLStore struct {
	db  *sql.DB
	log *logger.Logger
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func NewMySQLStore(cfg config.DatabaseConfig, log *logger.Logger) (*MySQLStore, error) {
	log.LogDatabase("CONNECT", "mysql", fmt.Sprintf("Connecting to MySQL at %s:%s", cfg.Host, cfg.Port))

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		log.Error("DATABASE", "Failed to open MySQL connection: "+err.Error())
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.Error("DATABASE", "Failed to ping MySQL: "+err.Error())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.LogDatabase("SUCCESS", "mysql", "MySQL connection established")
	return NewMySQLStoreFromDB(db, log), nil
}

// NewMySQLStoreFromDB wraps an already opened pool
func NewMySQLStoreFromDB(db *sql.DB, log *logger.Logger) *MySQLStore {
	return &MySQLStore{db: db, log: log}
}

// Migrate creates the tables if they do not exist
func (s *MySQLStore) Migrate(ctx context.Context) error {
	s.log.LogDatabase("MIGRATE", "mysql", fmt.Sprintf("Applying %d schema statements", len(Schema)))
	for _, stmt := range Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	s.log.LogDatabase("SUCCESS", "mysql", "Schema ready")
	return nil
}

func (s *MySQLStore) Close() error {
	s.log.LogDatabase("CLOSE", "mysql", "Closing MySQL connection")
	return s.db.Close()
}

func (s *MySQLStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// count runs a COUNT(*) query built from the same filter as the page query
func (s *MySQLStore) count(ctx context.Context, query string, args []interface{}) (int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return total, nil
}

// execAffected runs a write that must touch exactly one existing row
func (s *MySQLStore) execAffected(ctx context.Context, what string, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.log.Error("DATABASE", fmt.Sprintf("Failed to %s: %s", what, err.Error()))
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
