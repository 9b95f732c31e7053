package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// migrateDSN rewrites the postgresql:// scheme, which golang-migrate does not
// register, to postgres://.
func migrateDSN(dsn string) string {
	if strings.HasPrefix(dsn, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(dsn, "postgresql://")
	}
	return dsn
}

func newMigrate(dsn, migrationsPath string) (*migrate.Migrate, error) {
	m, err := migrate.New("file://"+migrationsPath, migrateDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open migrations %s: %w", migrationsPath, err)
	}
	return m, nil
}

func RunMigrations(dsn string, migrationsPath string) error {
	m, err := newMigrate(dsn, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// RollbackMigrations undoes the last steps migrations.
func RollbackMigrations(dsn string, migrationsPath string, steps int) error {
	m, err := newMigrate(dsn, migrationsPath)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
