package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// MemoryBreaker is the single-process fallback used in development. It
// implements the identical state machine as RedisBreaker under a single
// mutex rather than Lua scripts, since there is only one worker to
// serialise against.
type MemoryBreaker struct {
	cfg Config

	mu            sync.Mutex
	state         geomodel.BreakerState
	failureCount  int
	lastFailureTS int64
	openUntilTS   int64
}

func NewMemoryBreaker(cfg Config) *MemoryBreaker {
	return &MemoryBreaker{cfg: cfg, state: geomodel.StateClosed}
}

func (b *MemoryBreaker) Allow(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().Unix()

	switch b.state {
	case geomodel.StateClosed:
		return true, nil
	case geomodel.StateOpen:
		if now >= b.openUntilTS {
			b.state = geomodel.StateHalfOpen
			return true, nil
		}
		return false, nil
	default: // half_open
		return true, nil
	}
}

func (b *MemoryBreaker) RecordSuccess(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = geomodel.StateClosed
	b.failureCount = 0
	return nil
}

func (b *MemoryBreaker) RecordFailure(ctx context.Context, retryAfter time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now().Unix()
	b.failureCount++
	b.lastFailureTS = now

	if b.failureCount >= b.cfg.FailureThreshold || b.state == geomodel.StateHalfOpen {
		cooldown := b.cfg.RecoveryTimeout
		if retryAfter > cooldown {
			cooldown = retryAfter
		}
		b.state = geomodel.StateOpen
		b.openUntilTS = now + int64(cooldown.Seconds())
	}
	return nil
}

func (b *MemoryBreaker) ForceReset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = geomodel.StateClosed
	b.failureCount = 0
	b.openUntilTS = 0
	return nil
}

func (b *MemoryBreaker) Snapshot(ctx context.Context) (geomodel.CircuitState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.state
	if state == geomodel.StateOpen && time.Now().Unix() >= b.openUntilTS {
		state = geomodel.StateHalfOpen
	}

	return geomodel.CircuitState{
		State:         state,
		FailureCount:  b.failureCount,
		LastFailureTS: b.lastFailureTS,
		OpenUntilTS:   b.openUntilTS,
	}, nil
}
