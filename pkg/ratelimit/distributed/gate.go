package distributed

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/flowgate/internal/debuglog"
	"github.com/vnykmshr/flowgate/pkg/ratelimit/asyncthrottle"
)

// redisGate implements Gate with SET NX PX and a compare-and-delete release.
type redisGate struct {
	kind   Kind
	config Config
	key    string
	log    debuglog.Logger

	// Lua script for atomic release
	releaseScript *redis.Script
}

func newRedisGate(kind Kind, config Config) *redisGate {
	return &redisGate{
		kind:          kind,
		config:        config,
		key:           gateKey(kind, config.Key),
		log:           debuglog.New(config.Logger, "distributed", config.Name, config.Debug).With("kind", kind.String()),
		releaseScript: redis.NewScript(luaCompareAndDelete),
	}
}

func (g *redisGate) Call(ctx context.Context, action asyncthrottle.Action) error {
	_, err := g.TryCall(ctx, action)
	return err
}

func (g *redisGate) TryCall(ctx context.Context, action asyncthrottle.Action) (bool, error) {
	if action == nil {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	token := newToken(g.config.InstanceID)
	acquired, err := g.acquire(ctx, token)
	if err != nil {
		if !g.config.FailOpen {
			return false, err
		}
		g.log.Debug("redis unavailable, failing open", "error", err)
		acquired, token = true, ""
	}
	if !acquired {
		g.log.Debug("call rejected")
		g.report(0, false)
		return false, nil
	}

	completed := false
	defer func() {
		if !completed {
			g.release(ctx, token)
		}
	}()

	start := time.Now()
	actionErr := action(ctx)
	completed = true
	elapsed := time.Since(start)

	// A lock always reopens; a cooldown reopens only when the action failed.
	if g.kind == Lock || actionErr != nil {
		g.release(ctx, token)
	}

	g.log.Debug("call executed", "elapsed", elapsed, "error", actionErr)
	g.report(elapsed, true)
	return true, actionErr
}

// acquire closes the gate with token if it is open.
func (g *redisGate) acquire(ctx context.Context, token string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.RedisTimeout)
	defer cancel()

	ok, err := g.config.Redis.SetNX(ctx, g.key, token, g.config.Duration).Result()
	if err != nil {
		return false, &RedisError{"acquire", err}
	}
	return ok, nil
}

// release deletes the gate key if it still holds token. Failures are only
// logged: the key expires on its own after Duration.
func (g *redisGate) release(ctx context.Context, token string) {
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.config.RedisTimeout)
	defer cancel()

	deleted, err := g.releaseScript.Run(ctx, g.config.Redis, []string{g.key}, token).Int64()
	if err != nil {
		g.log.Error("release failed", "error", &RedisError{"release", err})
		return
	}
	if deleted == 0 {
		g.log.Debug("hold expired before release")
	}
}

func (g *redisGate) IsLocked(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.RedisTimeout)
	defer cancel()

	n, err := g.config.Redis.Exists(ctx, g.key).Result()
	if err != nil {
		return false, &RedisError{"exists", err}
	}
	return n > 0, nil
}

func (g *redisGate) Remaining(ctx context.Context) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.RedisTimeout)
	defer cancel()

	ttl, err := g.config.Redis.PTTL(ctx, g.key).Result()
	if err != nil {
		return 0, &RedisError{"pttl", err}
	}
	// PTTL reports -2 for a missing key and -1 for a key without expiry.
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (g *redisGate) Reset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.config.RedisTimeout)
	defer cancel()

	if err := g.config.Redis.Del(ctx, g.key).Err(); err != nil {
		return &RedisError{"reset", err}
	}
	g.log.Debug("reset")
	return nil
}

func (g *redisGate) report(elapsed time.Duration, executed bool) {
	if g.config.OnMetrics != nil {
		g.config.OnMetrics(elapsed, executed)
	}
}

// Lua scripts for atomic operations
const luaCompareAndDelete = `
-- KEYS[1]: gate key
-- ARGV[1]: token of the releasing holder

if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`
