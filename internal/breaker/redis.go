package breaker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jcom-dev/elevation-api/internal/geomodel"
)

// RedisBreaker stores circuit state in Redis so every worker process shares
// one view, needed for multi-worker production deployments. State
// transitions are expressed as Lua scripts (the same atomic-INCR-plus-
// bookkeeping shape used elsewhere in this stack for request counting), so
// a read-then-write race between two workers never produces a torn state.
type RedisBreaker struct {
	client *redis.Client
	cfg    Config

	stateKey      string
	failuresKey   string
	openUntilKey  string
	lastFailedKey string
}

// NewRedisBreaker builds a breaker for sourceID, namespacing its keys so
// multiple sources can share one Redis instance without collision.
func NewRedisBreaker(client *redis.Client, sourceID string, cfg Config) *RedisBreaker {
	prefix := "breaker:" + sourceID
	return &RedisBreaker{
		client:        client,
		cfg:           cfg,
		stateKey:      prefix + ":state",
		failuresKey:   prefix + ":failures",
		openUntilKey:  prefix + ":open_until",
		lastFailedKey: prefix + ":last_failure",
	}
}

var allowScript = redis.NewScript(`
local state_key = KEYS[1]
local open_until_key = KEYS[2]
local now = redis.call('TIME')[1]

local state = redis.call('GET', state_key)
if state == false then
	state = 'closed'
end

if state == 'closed' then
	return 1
end

if state == 'open' then
	local open_until = tonumber(redis.call('GET', open_until_key) or '0')
	if tonumber(now) >= open_until then
		redis.call('SET', state_key, 'half_open')
		return 1
	end
	return 0
end

return 1
`)

func (b *RedisBreaker) Allow(ctx context.Context) (bool, error) {
	res, err := allowScript.Run(ctx, b.client, []string{b.stateKey, b.openUntilKey}).Int()
	if err != nil {
		return false, fmt.Errorf("breaker allow: %w", err)
	}
	return res == 1, nil
}

var recordSuccessScript = redis.NewScript(`
redis.call('SET', KEYS[1], 'closed')
redis.call('SET', KEYS[2], 0)
return 1
`)

func (b *RedisBreaker) RecordSuccess(ctx context.Context) error {
	if err := recordSuccessScript.Run(ctx, b.client, []string{b.stateKey, b.failuresKey}).Err(); err != nil {
		return fmt.Errorf("breaker record_success: %w", err)
	}
	return nil
}

var recordFailureScript = redis.NewScript(`
local state_key = KEYS[1]
local failures_key = KEYS[2]
local open_until_key = KEYS[3]
local last_failure_key = KEYS[4]

local threshold = tonumber(ARGV[1])
local recovery_seconds = tonumber(ARGV[2])
local retry_after_seconds = tonumber(ARGV[3])

local now = tonumber(redis.call('TIME')[1])
local failures = redis.call('INCR', failures_key)
local state = redis.call('GET', state_key)
if state == false then
	state = 'closed'
end

redis.call('SET', last_failure_key, now)

if failures >= threshold or state == 'half_open' then
	local cooldown = recovery_seconds
	if retry_after_seconds > cooldown then
		cooldown = retry_after_seconds
	end
	redis.call('SET', state_key, 'open')
	redis.call('SET', open_until_key, now + cooldown)
	return 1
end

return 0
`)

func (b *RedisBreaker) RecordFailure(ctx context.Context, retryAfter time.Duration) error {
	err := recordFailureScript.Run(ctx, b.client, []string{b.stateKey, b.failuresKey, b.openUntilKey, b.lastFailedKey},
		b.cfg.FailureThreshold, int(b.cfg.RecoveryTimeout.Seconds()), int(retryAfter.Seconds())).Err()
	if err != nil {
		return fmt.Errorf("breaker record_failure: %w", err)
	}
	return nil
}

var forceResetScript = recordSuccessScript

func (b *RedisBreaker) ForceReset(ctx context.Context) error {
	if err := forceResetScript.Run(ctx, b.client, []string{b.stateKey, b.failuresKey}).Err(); err != nil {
		return fmt.Errorf("breaker force_reset: %w", err)
	}
	return nil
}

var snapshotScript = redis.NewScript(`
local state_key = KEYS[1]
local failures_key = KEYS[2]
local open_until_key = KEYS[3]
local last_failure_key = KEYS[4]

local now = tonumber(redis.call('TIME')[1])
local state = redis.call('GET', state_key)
if state == false then
	state = 'closed'
end

local open_until = tonumber(redis.call('GET', open_until_key) or '0')
if state == 'open' and now >= open_until then
	state = 'half_open'
end

local failures = tonumber(redis.call('GET', failures_key) or '0')
local last_failure = tonumber(redis.call('GET', last_failure_key) or '0')

return {state, failures, last_failure, open_until}
`)

func (b *RedisBreaker) Snapshot(ctx context.Context) (geomodel.CircuitState, error) {
	res, err := snapshotScript.Run(ctx, b.client, []string{b.stateKey, b.failuresKey, b.openUntilKey, b.lastFailedKey}).Slice()
	if err != nil {
		return geomodel.CircuitState{}, fmt.Errorf("breaker snapshot: %w", err)
	}
	if len(res) != 4 {
		return geomodel.CircuitState{}, fmt.Errorf("breaker snapshot: unexpected result shape %v", res)
	}

	state, _ := res[0].(string)
	failures, _ := res[1].(int64)
	lastFailure, _ := res[2].(int64)
	openUntil, _ := res[3].(int64)

	return geomodel.CircuitState{
		State:         geomodel.BreakerState(state),
		FailureCount:  int(failures),
		LastFailureTS: lastFailure,
		OpenUntilTS:   openUntil,
	}, nil
}

// Ping checks Redis reachability once at startup so a production deployment
// can fail fast rather than serve with a breaker store it cannot reach.
func Ping(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}
