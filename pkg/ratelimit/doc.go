/*
Package ratelimit groups the execution-control primitives.

Timer-gated primitives take plain func() actions:

  - throttle: the first call runs immediately and starts a cooldown; calls
    during the cooldown are dropped
  - debounce: each call restarts a quiet-period timer; only the last call
    runs, optionally bounded by a maximum wait

Awaitable primitives take context-aware actions and report their errors:

  - asyncthrottle: a lock admitting one action at a time, released when the
    action completes or after MaxDuration
  - asyncdebounce: callers wait for the quiet period; superseded callers get
    ok == false
  - concurrency: one lock with a policy for calls that arrive while busy
    (Drop, Enqueue, Replace, KeepLatest)

The distributed package applies the throttle and lock semantics across
processes through Redis.

Choosing a primitive:

	save := throttle.New(time.Second)              // at most one save per second
	search := debounce.New(300 * time.Millisecond) // query once typing stops
	submit := asyncthrottle.New(10 * time.Second)  // no double submits
	refresh := concurrency.New(concurrency.KeepLatest)

Every primitive accepts a clock.Clock, so tests can drive time by hand, and
offers NewWithMetrics for Prometheus instrumentation. All primitives are safe
for concurrent use.
*/
package ratelimit
