package pgstore

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"smartattendance/internal/apperr"
	"smartattendance/internal/store"
)

func TestClassify(t *testing.T) {
	assert.ErrorIs(t, classify("get", sql.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t, classify("insert", &pgconn.PgError{Code: "23505"}), store.ErrDuplicate)
	assert.True(t, apperr.Is(classify("insert", &pgconn.PgError{Code: "57P01"}), apperr.CodeUnavailable))
	assert.True(t, apperr.Is(classify("ping", errors.New("dial tcp: refused")), apperr.CodeUnavailable))
}
