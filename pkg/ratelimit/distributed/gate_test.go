package distributed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/flowgate/internal/testutil"
	"github.com/vnykmshr/flowgate/pkg/metrics"
)

// newTestRedis starts an in-process Redis and returns a client for it.
func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func newTestGate(t *testing.T, kind Kind, rdb redis.UniversalClient, instance string) Gate {
	t.Helper()
	g, err := New(kind, Config{Redis: rdb, Key: "jobs:rebuild", Duration: time.Second, InstanceID: instance})
	testutil.AssertNoError(t, err)
	return g
}

func TestLockRejectsSecondInstance(t *testing.T) {
	mr, rdb := newTestRedis(t)
	web1 := newTestGate(t, Lock, rdb, "web-1")
	web2 := newTestGate(t, Lock, rdb, "web-2")
	ctx := context.Background()

	executed, err := web1.TryCall(ctx, func(ctx context.Context) error {
		held, err := web2.IsLocked(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, held, true)

		ran := false
		executed, err := web2.TryCall(ctx, func(context.Context) error {
			ran = true
			return nil
		})
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, executed, false)
		testutil.AssertEqual(t, ran, false)
		return nil
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, executed, true)

	// A lock reopens as soon as its holder completes.
	testutil.AssertEqual(t, mr.Exists("jobs:rebuild:lock"), false)
	executed, err = web2.TryCall(ctx, func(context.Context) error { return nil })
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, executed, true)
}

func TestLockReleasesOnFailure(t *testing.T) {
	mr, rdb := newTestRedis(t)
	lock := newTestGate(t, Lock, rdb, "web-1")

	errRebuild := errors.New("rebuild failed")
	err := lock.Call(context.Background(), func(context.Context) error { return errRebuild })
	if !errors.Is(err, errRebuild) {
		t.Fatalf("expected errRebuild, got %v", err)
	}
	testutil.AssertEqual(t, mr.Exists("jobs:rebuild:lock"), false)
}

func TestCooldownHoldsKeyAfterSuccess(t *testing.T) {
	mr, rdb := newTestRedis(t)
	web1 := newTestGate(t, Cooldown, rdb, "web-1")
	web2 := newTestGate(t, Cooldown, rdb, "web-2")
	ctx := context.Background()
	send := func(context.Context) error { return nil }

	executed, err := web1.TryCall(ctx, send)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, executed, true)
	testutil.AssertEqual(t, mr.Exists("jobs:rebuild:cooldown"), true)

	executed, err = web2.TryCall(ctx, send)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, executed, false)

	remaining, err := web2.Remaining(ctx)
	testutil.AssertNoError(t, err)
	if remaining <= 0 || remaining > time.Second {
		t.Fatalf("Remaining = %v, want within (0, 1s]", remaining)
	}

	mr.FastForward(time.Second)
	remaining, err = web2.Remaining(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, remaining, time.Duration(0))

	executed, err = web2.TryCall(ctx, send)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, executed, true)
}

func TestCooldownReleasesOnFailure(t *testing.T) {
	failures := map[string]func(context.Context) error{
		"error": func(context.Context) error { return errors.New("smtp down") },
		"panic": func(context.Context) error { panic("smtp down") },
	}
	for name, fail := range failures {
		t.Run(name, func(t *testing.T) {
			mr, rdb := newTestRedis(t)
			cooldown := newTestGate(t, Cooldown, rdb, "web-1")
			ctx := context.Background()

			func() {
				defer func() { _ = recover() }()
				_ = cooldown.Call(ctx, fail)
			}()
			testutil.AssertEqual(t, mr.Exists("jobs:rebuild:cooldown"), false)

			executed, err := cooldown.TryCall(ctx, func(context.Context) error { return nil })
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, executed, true)
		})
	}
}

func TestReleaseKeepsNewerHolder(t *testing.T) {
	mr, rdb := newTestRedis(t)
	lock := newTestGate(t, Lock, rdb, "web-1")

	// The hold expires mid-action and another instance takes the key.
	err := lock.Call(context.Background(), func(context.Context) error {
		mr.FastForward(time.Second)
		testutil.AssertNoError(t, mr.Set("jobs:rebuild:lock", "web-2:token"))
		return nil
	})
	testutil.AssertNoError(t, err)

	got, err := mr.Get("jobs:rebuild:lock")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, "web-2:token")
}

func TestReleaseOwnTokenOnly(t *testing.T) {
	mr, rdb := newTestRedis(t)
	g := newRedisGate(Lock, applyConfigDefaults(Config{Redis: rdb, Key: "jobs:rebuild", Duration: time.Second}))
	testutil.AssertNoError(t, mr.Set(g.key, "web-2:token"))

	g.release(context.Background(), "web-1:token")
	testutil.AssertEqual(t, mr.Exists(g.key), true)

	g.release(context.Background(), "web-2:token")
	testutil.AssertEqual(t, mr.Exists(g.key), false)
}

func TestReset(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cooldown := newTestGate(t, Cooldown, rdb, "web-1")
	ctx := context.Background()

	testutil.AssertNoError(t, cooldown.Call(ctx, func(context.Context) error { return nil }))
	held, err := cooldown.IsLocked(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, held, true)

	testutil.AssertNoError(t, cooldown.Reset(ctx))
	testutil.AssertEqual(t, mr.Exists("jobs:rebuild:cooldown"), false)
	held, err = cooldown.IsLocked(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, held, false)
}

func TestRedisErrorMidway(t *testing.T) {
	mr, rdb := newTestRedis(t)
	lock := newTestGate(t, Lock, rdb, "web-1")

	testutil.AssertNoError(t, rdb.Ping(context.Background()).Err())
	mr.SetError("ERR injected failure")
	executed, err := lock.TryCall(context.Background(), func(context.Context) error { return nil })
	testutil.AssertEqual(t, executed, false)
	var redisErr *RedisError
	if !errors.As(err, &redisErr) {
		t.Fatalf("expected RedisError, got %v", err)
	}

	mr.SetError("")
	executed, err = lock.TryCall(context.Background(), func(context.Context) error { return nil })
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, executed, true)
}

func TestNewWithMetrics(t *testing.T) {
	_, rdb := newTestRedis(t)
	reg := prometheus.NewRegistry()
	cooldown, err := NewWithMetrics(Cooldown, Config{Redis: rdb, Key: "mail", Duration: time.Minute},
		metrics.Config{Enabled: true, Registry: reg})
	testutil.AssertNoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_ = cooldown.Call(ctx, func(context.Context) error { return nil })
	}

	r := metrics.For(metrics.Config{Enabled: true, Registry: reg})
	testutil.AssertEqual(t, promtest.ToFloat64(r.Calls.WithLabelValues("distributed_cooldown", "mail", metrics.OutcomeExecuted)), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(r.Calls.WithLabelValues("distributed_cooldown", "mail", metrics.OutcomeBlocked)), 2.0)
}
