// Package breaker implements a per-source circuit breaker: a
// closed/open/half_open state machine with atomic multi-worker transitions,
// backed either by Redis (production) or an in-memory map (development).
package breaker

import (
	"context"
	"time"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// Breaker gates calls to a single data source. One instance exists per
// source id; all methods must be safe for concurrent use by multiple
// request-handling goroutines or processes.
type Breaker interface {
	// Allow reports whether a call to the wrapped source should proceed.
	// An open breaker whose recovery timeout has elapsed transitions to
	// half_open and allows the call that observes the transition. Calls
	// made while the breaker is half_open are allowed as well, until a
	// RecordSuccess closes it or a RecordFailure reopens it.
	Allow(ctx context.Context) (bool, error)

	// RecordSuccess resets failure_count to zero and closes the breaker.
	RecordSuccess(ctx context.Context) error

	// RecordFailure increments failure_count; once it reaches the
	// configured threshold the breaker opens until retryAfter (if
	// positive, honouring an upstream Retry-After header) or the
	// configured recovery timeout, whichever is later.
	RecordFailure(ctx context.Context, retryAfter time.Duration) error

	// ForceReset is the admin operation that unconditionally closes the
	// breaker, clearing failure_count.
	ForceReset(ctx context.Context) error

	// Snapshot returns a point-in-time view for health reporting.
	Snapshot(ctx context.Context) (geomodel.CircuitState, error)
}

// Config tunes one breaker instance.
type Config struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
}
