package debounce

import (
	"testing"
	"time"

	"github.com/vnykmshr/flowgate/internal/testutil"
	"github.com/vnykmshr/flowgate/pkg/common/errors"
)

func newTestDebouncer(t *testing.T, config Config) (Debouncer, *testutil.MockClock) {
	t.Helper()
	clk := testutil.NewMockClock(time.Time{})
	config.Clock = clk
	d, err := NewWithConfigSafe(config)
	testutil.AssertNoError(t, err)
	return d, clk
}

func TestNewWithConfigSafe(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		wantError bool
	}{
		{"valid", Config{Duration: time.Second}, false},
		{"zero duration", Config{}, false},
		{"with max wait", Config{Duration: time.Second, MaxWait: 5 * time.Second}, false},
		{"negative duration", Config{Duration: -1}, true},
		{"negative max wait", Config{Duration: time.Second, MaxWait: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWithConfigSafe(tt.config)
			if (err != nil) != tt.wantError {
				t.Errorf("error = %v, wantError %v", err, tt.wantError)
			}
			if err != nil && !errors.IsValidationError(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestLastCallWins(t *testing.T) {
	d, clk := newTestDebouncer(t, Config{Duration: 200 * time.Millisecond})
	var got []int
	start := clk.Now()
	var firedAt time.Time

	call := func(v int) {
		d.Call(func() {
			got = append(got, v)
			firedAt = clk.Now()
		})
	}

	call(1)
	clk.Advance(100 * time.Millisecond)
	call(2)
	clk.Advance(50 * time.Millisecond)
	call(3)
	testutil.AssertEqual(t, d.IsPending(), true)

	clk.Advance(199 * time.Millisecond)
	testutil.AssertEqual(t, len(got), 0)

	clk.Advance(time.Millisecond)
	testutil.AssertEqual(t, len(got), 1)
	testutil.AssertEqual(t, got[0], 3)
	testutil.AssertEqual(t, firedAt.Sub(start), 350*time.Millisecond)
	testutil.AssertEqual(t, d.IsPending(), false)

	clk.Advance(time.Second)
	testutil.AssertEqual(t, len(got), 1)
}

func TestCallWithDuration(t *testing.T) {
	d, clk := newTestDebouncer(t, Config{Duration: 100 * time.Millisecond})
	tracker := testutil.NewCallbackTracker()

	d.CallWithDuration(func() { tracker.Mark("custom") }, 500*time.Millisecond)
	clk.Advance(400 * time.Millisecond)
	tracker.AssertNotCalled(t)
	clk.Advance(100 * time.Millisecond)
	tracker.AssertCallCount(t, 1)

	d.Call(func() { tracker.Mark("default") })
	clk.Advance(100 * time.Millisecond)
	tracker.AssertCallCount(t, 2)
	testutil.AssertEqual(t, tracker.Value(), interface{}("default"))
}

func TestMaxWait(t *testing.T) {
	d, clk := newTestDebouncer(t, Config{Duration: 100 * time.Millisecond, MaxWait: 250 * time.Millisecond})
	var count int

	for i := 0; i < 5; i++ {
		d.Call(func() { count++ })
		clk.Advance(50 * time.Millisecond)
	}
	testutil.AssertEqual(t, count, 1)
	testutil.AssertEqual(t, d.IsPending(), false)
}

func TestFlush(t *testing.T) {
	d, clk := newTestDebouncer(t, Config{Duration: time.Second})
	var pendingRan, flushRan bool

	d.Call(func() { pendingRan = true })
	d.Flush(func() { flushRan = true })
	testutil.AssertEqual(t, flushRan, true)
	testutil.AssertEqual(t, d.IsPending(), false)

	clk.Advance(2 * time.Second)
	testutil.AssertEqual(t, pendingRan, false)
}

func TestFlushNilRunsPending(t *testing.T) {
	d, clk := newTestDebouncer(t, Config{Duration: time.Second})
	var count int

	d.Call(func() { count++ })
	d.Flush(nil)
	testutil.AssertEqual(t, count, 1)

	clk.Advance(2 * time.Second)
	testutil.AssertEqual(t, count, 1)

	d.Flush(nil)
	testutil.AssertEqual(t, count, 1)
}

func TestCancel(t *testing.T) {
	d, clk := newTestDebouncer(t, Config{Duration: time.Second})
	var ran bool

	d.Call(func() { ran = true })
	d.Cancel()
	testutil.AssertEqual(t, d.IsPending(), false)
	testutil.AssertEqual(t, clk.PendingTimers(), 0)

	clk.Advance(2 * time.Second)
	testutil.AssertEqual(t, ran, false)
}

func TestPanicIsRecovered(t *testing.T) {
	var reported error
	d, clk := newTestDebouncer(t, Config{
		Duration: 100 * time.Millisecond,
		OnError:  func(err error) { reported = err },
	})

	d.Call(func() { panic("boom") })
	clk.Advance(100 * time.Millisecond)

	if !errors.IsPanic(reported) {
		t.Fatalf("expected PanicError, got %v", reported)
	}

	var ran bool
	d.Call(func() { ran = true })
	clk.Advance(100 * time.Millisecond)
	testutil.AssertEqual(t, ran, true)
}

func TestResetOnErrorClearsState(t *testing.T) {
	for _, reset := range []bool{false, true} {
		d, clk := newTestDebouncer(t, Config{Duration: 100 * time.Millisecond, ResetOnError: reset})
		var followUp bool

		d.Call(func() {
			d.Call(func() { followUp = true })
			panic("boom")
		})
		clk.Advance(100 * time.Millisecond)
		testutil.AssertEqual(t, d.IsPending(), !reset)

		clk.Advance(100 * time.Millisecond)
		testutil.AssertEqual(t, followUp, !reset)
	}
}

func TestMetricsCallback(t *testing.T) {
	type report struct {
		elapsed   time.Duration
		cancelled bool
	}
	var reports []report
	d, clk := newTestDebouncer(t, Config{
		Duration: 100 * time.Millisecond,
		OnMetrics: func(elapsed time.Duration, cancelled bool) {
			reports = append(reports, report{elapsed, cancelled})
		},
	})

	d.Call(func() {})
	clk.Advance(30 * time.Millisecond)
	d.Call(func() {})
	clk.Advance(100 * time.Millisecond)

	testutil.AssertEqual(t, len(reports), 2)
	testutil.AssertEqual(t, reports[0], report{30 * time.Millisecond, true})
	testutil.AssertEqual(t, reports[1], report{100 * time.Millisecond, false})
}

func TestDisabledRunsImmediately(t *testing.T) {
	var fired int
	d, clk := newTestDebouncer(t, Config{
		Duration: time.Second,
		Disabled: true,
		OnMetrics: func(_ time.Duration, cancelled bool) {
			if !cancelled {
				fired++
			}
		},
	})
	var count int
	for i := 0; i < 3; i++ {
		d.Call(func() { count++ })
	}
	testutil.AssertEqual(t, count, 3)
	testutil.AssertEqual(t, fired, 3)
	testutil.AssertEqual(t, clk.Scheduled(), 0)
}

func TestDispose(t *testing.T) {
	d, clk := newTestDebouncer(t, Config{Duration: time.Second})
	var count int

	d.Call(func() { count++ })
	d.Dispose()
	testutil.AssertEqual(t, clk.PendingTimers(), 0)

	d.Call(func() { count++ })
	d.Flush(func() { count++ })
	clk.Advance(2 * time.Second)

	testutil.AssertEqual(t, count, 0)
	testutil.AssertEqual(t, d.IsPending(), false)
}

func TestWrap(t *testing.T) {
	d, clk := newTestDebouncer(t, Config{Duration: 50 * time.Millisecond})
	if d.Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	var count int
	handler := d.Wrap(func() { count++ })
	handler()
	handler()
	handler()
	clk.Advance(50 * time.Millisecond)
	testutil.AssertEqual(t, count, 1)
}

func TestSystemClock(t *testing.T) {
	d, err := NewSafe(10 * time.Millisecond)
	testutil.AssertNoError(t, err)
	defer d.Dispose()

	tracker := testutil.NewCallbackTracker()
	d.Call(func() { tracker.Mark() })
	d.Call(func() { tracker.Mark() })

	testutil.AssertEventually(t, tracker.Called)
	time.Sleep(30 * time.Millisecond)
	tracker.AssertCallCount(t, 1)
}
