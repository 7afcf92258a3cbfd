// Package orchestrator runs an ordered chain of data sources in priority
// order, short-circuiting on the first success, recording per-source usage,
// and turning breaker/source outcomes into a plain result value instead of
// using errors for the not-found case.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jcom-dev/elevation-api/internal/breaker"
	"github.com/jcom-dev/elevation-api/internal/geomodel"
	"github.com/jcom-dev/elevation-api/internal/sources"
)

// entry pairs one source with its breaker and timeout, in fallback order.
type entry struct {
	descriptor geomodel.SourceDescriptor
	source     sources.DataSource
	breaker    breaker.Breaker
	timeout    time.Duration

	statsMu sync.Mutex
	stats   geomodel.UsageStats
}

// Orchestrator holds the assembled fallback chain, built once at startup
// and shared read-only across every request.
type Orchestrator struct {
	entries []*entry
}

// New builds an empty Orchestrator; sources are appended with Add.
// Construction never performs I/O; the caller is responsible for ordering
// by SourceDescriptor.Priority.
func New() *Orchestrator {
	return &Orchestrator{}
}

// Add appends one source to the end of the fallback chain. Call in
// ascending priority order (private_bucket, then public_bucket, then
// http_api_a, then http_api_b).
func (o *Orchestrator) Add(descriptor geomodel.SourceDescriptor, source sources.DataSource, b breaker.Breaker, timeout time.Duration) {
	o.entries = append(o.entries, &entry{
		descriptor: descriptor,
		source:     source,
		breaker:    b,
		timeout:    timeout,
	})
}

// Result is the orchestrator's per-request answer: either a Found outcome
// or an exhausted chain with the list of sources attempted, so the driver
// can build a response naming which sources were tried when none of them
// found coverage.
type Result struct {
	Outcome       geomodel.ElevationOutcome
	SourcesTried  []string
	SuccessSource string
}

// Query walks the chain in order, skips sources whose breaker is open,
// invokes each admitted source under its configured timeout, and stops at
// the first Found outcome.
func (o *Orchestrator) Query(ctx context.Context, qp *geomodel.QueryPoint) Result {
	var tried []string

	for _, e := range o.entries {
		allowed, err := e.breaker.Allow(ctx)
		if err != nil {
			slog.Error("breaker allow check failed", "source", e.descriptor.ID, "error", err)
			allowed = true // fail open on breaker-store errors rather than silently excluding a source.
		}
		if !allowed {
			o.bump(e, func(s *geomodel.UsageStats) { s.CircuitTrips++ })
			continue
		}

		tried = append(tried, e.descriptor.ID)
		o.bump(e, func(s *geomodel.UsageStats) { s.Attempts++ })

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		outcome := e.source.GetElevation(callCtx, qp)
		cancel()

		switch {
		case outcome.Kind == geomodel.OutcomeFound:
			_ = e.breaker.RecordSuccess(ctx)
			o.bump(e, func(s *geomodel.UsageStats) { s.Successes++ })
			return Result{Outcome: outcome, SourcesTried: tried, SuccessSource: e.descriptor.ID}

		case outcome.IsFailure():
			retryAfter := time.Duration(0)
			if outcome.RetryAfter != nil {
				retryAfter = time.Duration(*outcome.RetryAfter) * time.Second
			}
			_ = e.breaker.RecordFailure(ctx, retryAfter)
			o.bump(e, func(s *geomodel.UsageStats) { s.Failures++ })
			continue

		default: // NotCovered / NoData: coverage gap, breaker untouched.
			continue
		}
	}

	return Result{
		Outcome:      noElevationFound(),
		SourcesTried: tried,
	}
}

func noElevationFound() geomodel.ElevationOutcome {
	return geomodel.NotCovered()
}

// bump applies fn to the entry's usage stats under its own mutex, keeping
// UsageStats updates atomic across concurrent request-handling goroutines.
func (o *Orchestrator) bump(e *entry, fn func(*geomodel.UsageStats)) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	fn(&e.stats)
}

// UsageSnapshot returns a point-in-time copy of every source's usage
// counters, keyed by source id, for diagnostics. The health endpoint
// reports breaker state through HealthSnapshot and does not include these
// counters.
func (o *Orchestrator) UsageSnapshot() map[string]geomodel.UsageStats {
	out := make(map[string]geomodel.UsageStats, len(o.entries))
	for _, e := range o.entries {
		e.statsMu.Lock()
		out[e.descriptor.ID] = e.stats
		e.statsMu.Unlock()
	}
	return out
}

// SourceSnapshot describes one source's breaker state for /api/v1/health.
type SourceSnapshot struct {
	ID    string
	State geomodel.BreakerState
}

// HealthSnapshot returns each source's current breaker state.
func (o *Orchestrator) HealthSnapshot(ctx context.Context) []SourceSnapshot {
	out := make([]SourceSnapshot, 0, len(o.entries))
	for _, e := range o.entries {
		state, err := e.breaker.Snapshot(ctx)
		if err != nil {
			out = append(out, SourceSnapshot{ID: e.descriptor.ID, State: geomodel.StateClosed})
			continue
		}
		out = append(out, SourceSnapshot{ID: e.descriptor.ID, State: state.State})
	}
	return out
}
