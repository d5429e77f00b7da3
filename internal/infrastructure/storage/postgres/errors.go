package postgres

import (
	"errors"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"stockflow/internal/core/apperror"
)

// SQLSTATE codes the service reacts to.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
)

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err)
}

// MapError turns constraint and concurrency failures into apperror kinds.
// Errors that already carry a kind, and errors postgres did not raise, are
// returned unchanged.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.AsAppError(err); ok {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return apperror.NewConflict("duplicate record").
			WithDetail("constraint", pgErr.ConstraintName).
			WithDetail("retryable", true).
			WithCause(err)
	case pgForeignKeyViolation:
		return apperror.NewInvalidReference(pgErr.TableName, nil, "referenced record does not exist or is still referenced").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgCheckViolation:
		return apperror.NewValidation("check constraint violated").
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
		return apperror.NewConflict("concurrent update, retry the operation").
			WithDetail("sqlstate", pgErr.Code).
			WithDetail("retryable", true).
			WithCause(err)
	}
	return err
}
