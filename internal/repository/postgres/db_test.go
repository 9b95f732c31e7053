package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMigrateDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/app", migrateDSN("postgresql://u:p@db:5432/app"))
	assert.Equal(t, "postgres://u:p@db:5432/app", migrateDSN("postgres://u:p@db:5432/app"))
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", dup)))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("boom")))
	assert.False(t, isUniqueViolation(nil))
}
