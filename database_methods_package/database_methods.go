package database_methods

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type ConnPostgres struct {
	Host     string
	User     string
	Password string
	DbName   string
	Port     string
	SslMode  string

	// URL, when set, is used verbatim instead of the fields above.
	URL string
}

// DSN builds the lib/pq connection string.
func (s *ConnPostgres) DSN() string {
	if s.URL != "" {
		return s.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		s.Host, s.User, s.Password, s.DbName, s.Port, s.SslMode)
}

// DbConnector opens a pool through lib/pq and checks that the server
// answers.
func (s *ConnPostgres) DbConnector(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", s.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return db, nil
}

// SetupGormDatabase wraps an open pool in a gorm handle. gorm's own
// logger writes through the given slog logger at WARN.
func SetupGormDatabase(db *sql.DB, log *slog.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening gorm: %w", err)
	}
	return gdb, nil
}

// EnsureSchema creates the users, banks and transactions tables when they
// are missing. Concurrent registrations of one name are settled by the
// unique index on users.name.
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	var schema = []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS banks (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			from_user TEXT NOT NULL,
			to_user TEXT NOT NULL,
			from_bank BIGINT NOT NULL REFERENCES banks(id),
			to_bank BIGINT NOT NULL REFERENCES banks(id),
			from_card TEXT NOT NULL,
			to_card TEXT NOT NULL,
			amount BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_from_user_idx ON transactions (from_user)`,
		`CREATE INDEX IF NOT EXISTS transactions_to_user_idx ON transactions (to_user)`,
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range schema {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("creating schema: %w", err)
			}
		}
		return nil
	})
}

// SeedBanks inserts the named banks, skipping names that already exist.
func SeedBanks(ctx context.Context, db *gorm.DB, names []string) error {
	for _, name := range names {
		err := db.WithContext(ctx).
			Exec("INSERT INTO banks (name) VALUES (?) ON CONFLICT (name) DO NOTHING", name).Error
		if err != nil {
			return fmt.Errorf("seeding bank %q: %w", name, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// isForeignKeyViolation reports a reference to a missing row, e.g. a bank
// deleted after it was resolved.
func isForeignKeyViolation(err error) bool {
	return hasCode(err, foreignKeyViolation)
}

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
