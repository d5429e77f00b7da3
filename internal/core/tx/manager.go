// Package tx defines the unit-of-work contract the domain runs under.
// Implementations live in infrastructure/storage/postgres; tests use an
// in-memory implementation.
package tx

import (
	"context"
)

// Manager runs a function inside one database transaction.
//
// If fn returns an error the transaction is rolled back and the error is
// returned; driver failures may come back translated into apperror kinds. Nested calls reuse the transaction already carried
// by ctx, so a domain service can call another without opening a second
// unit of work.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Run is RunInTransaction for functions that produce a value.
func Run[T any](ctx context.Context, m Manager, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := m.RunInTransaction(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
