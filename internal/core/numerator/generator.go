// Package numerator defines how documents get their human-readable numbers.
package numerator

import (
	"context"
	"time"
)

// Generator hands out document numbers. period picks the series when the
// config resets yearly or monthly.
type Generator interface {
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber moves a series so the next number is value, e.g. after
	// importing documents numbered elsewhere.
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
