package distributed

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/flowgate/internal/testutil"
	gferrors "github.com/vnykmshr/flowgate/pkg/common/errors"
)

// unreachableClient returns a client whose every command fails fast.
func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestValidateConfig(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer func() { _ = rdb.Close() }()

	tests := []struct {
		name       string
		kind       Kind
		config     Config
		validation bool
	}{
		{"missing redis", Lock, Config{Key: "k", Duration: time.Second}, true},
		{"missing key", Lock, Config{Redis: rdb, Duration: time.Second}, true},
		{"zero duration", Cooldown, Config{Redis: rdb, Key: "k"}, true},
		{"negative timeout", Cooldown, Config{Redis: rdb, Key: "k", Duration: time.Second, RedisTimeout: -1}, true},
		{"unknown kind", Kind(7), Config{Redis: rdb, Key: "k", Duration: time.Second}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := New(tt.kind, tt.config)
			testutil.AssertError(t, err)
			if g != nil {
				t.Error("expected nil gate on error")
			}
			if gferrors.IsValidationError(err) != tt.validation {
				t.Errorf("IsValidationError(%v) = %v, want %v", err, !tt.validation, tt.validation)
			}
		})
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	config := applyConfigDefaults(Config{Key: "emails"})
	testutil.AssertEqual(t, config.RedisTimeout, 500*time.Millisecond)
	testutil.AssertEqual(t, config.Name, "emails")
	if config.InstanceID == "" {
		t.Error("expected a generated instance id")
	}

	kept := applyConfigDefaults(Config{Key: "emails", Name: "reminders", InstanceID: "web-1", RedisTimeout: time.Second})
	testutil.AssertEqual(t, kept.Name, "reminders")
	testutil.AssertEqual(t, kept.InstanceID, "web-1")
	testutil.AssertEqual(t, kept.RedisTimeout, time.Second)
}

func TestTokensAreUnique(t *testing.T) {
	a := newToken("web-1")
	b := newToken("web-1")
	testutil.AssertNotEqual(t, a, b)
	if !strings.HasPrefix(a, "web-1:") {
		t.Errorf("token %q does not name its instance", a)
	}
	testutil.AssertNotEqual(t, generateInstanceID(), generateInstanceID())
}

func TestGateKey(t *testing.T) {
	testutil.AssertEqual(t, gateKey(Lock, "jobs:rebuild"), "jobs:rebuild:lock")
	testutil.AssertEqual(t, gateKey(Cooldown, "mail"), "mail:cooldown")
}

func TestRedisUnavailable(t *testing.T) {
	g, err := NewLock(Config{Redis: unreachableClient(t), Key: "k", Duration: time.Second})
	testutil.AssertNoError(t, err)

	var ran bool
	executed, err := g.TryCall(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	testutil.AssertEqual(t, executed, false)
	testutil.AssertEqual(t, ran, false)

	var redisErr *RedisError
	if !errors.As(err, &redisErr) {
		t.Fatalf("expected RedisError, got %v", err)
	}
	testutil.AssertEqual(t, redisErr.Operation, "acquire")

	_, err = g.IsLocked(context.Background())
	testutil.AssertError(t, err)
	testutil.AssertError(t, g.Reset(context.Background()))
}

func TestFailOpen(t *testing.T) {
	var reports []bool
	g, err := NewCooldown(Config{
		Redis:     unreachableClient(t),
		Key:       "k",
		Duration:  time.Second,
		FailOpen:  true,
		OnMetrics: func(_ time.Duration, executed bool) { reports = append(reports, executed) },
	})
	testutil.AssertNoError(t, err)

	errAction := errors.New("action failed")
	executed, err := g.TryCall(context.Background(), func(context.Context) error { return errAction })
	testutil.AssertEqual(t, executed, true)
	if !errors.Is(err, errAction) {
		t.Fatalf("expected action error, got %v", err)
	}
	testutil.AssertEqual(t, len(reports), 1)
	testutil.AssertEqual(t, reports[0], true)
}

func TestCancelledContext(t *testing.T) {
	g, err := NewLock(Config{Redis: unreachableClient(t), Key: "k", Duration: time.Second, FailOpen: true})
	testutil.AssertNoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	executed, err := g.TryCall(ctx, func(context.Context) error { return nil })
	testutil.AssertEqual(t, executed, false)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestKindString(t *testing.T) {
	testutil.AssertEqual(t, Cooldown.String(), "cooldown")
	testutil.AssertEqual(t, Lock.String(), "lock")
	testutil.AssertEqual(t, Kind(9).String(), "unknown")
}
