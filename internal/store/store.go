// Package store is the persistence layer: per-entity stores over a shared
// *sql.DB, with optimistic version checks on every document that concurrent
// writers share. Conflicts surface as ErrConflict and are retried by
// WithRetry; there is no lock manager.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

var (
	// ErrConflict reports an optimistic-concurrency failure: the document
	// version changed under the transaction. Transient; retry the whole
	// read-modify-write.
	ErrConflict = errors.New("transaction conflict")

	// ErrUnavailable reports a store failure that exhausted its retries.
	// The document remains in its last-committed state.
	ErrUnavailable = errors.New("store unavailable")
)

const maxTxRetries = 5

// WithRetry runs fn, retrying a bounded number of times with exponential
// backoff when it fails with ErrConflict. Exhaustion escalates to
// ErrUnavailable.
func WithRetry(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(maxTxRetries, retry.NewExponential(10*time.Millisecond))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if errors.Is(err, ErrConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if errors.Is(err, ErrConflict) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
