/*
Package flowgate provides execution-control primitives for Go applications:
small, timer-driven gates that decide when and how often caller-supplied
work runs.

Execution Control (pkg/ratelimit):
  - throttle: run at once, then ignore calls for a cooldown window
  - debounce: run once after a quiet period, superseding earlier calls
  - asyncthrottle: allow one awaited action at a time, with a timeout
  - asyncdebounce: debounce awaited actions, resolving superseded callers
  - concurrency: one lock with drop, enqueue, replace, or keep-latest policy
  - distributed: cross-instance cooldowns and locks backed by Redis

Scheduling (pkg/scheduling):
  - scheduler: cron jobs whose overlap policy is a concurrency mode

Support:
  - clock: the time source and timer factory every primitive runs on
  - config: named primitives loaded from YAML
  - metrics: Prometheus collectors shared by all primitives

Example usage:

	import (
		"github.com/vnykmshr/flowgate/pkg/ratelimit/debounce"
		"github.com/vnykmshr/flowgate/pkg/ratelimit/throttle"
	)

	save := throttle.New(500 * time.Millisecond)
	search := debounce.New(300 * time.Millisecond)

	save.Call(persist)      // runs now; repeats within 500ms are dropped
	search.Call(runQuery)   // runs 300ms after the last keystroke
*/
package flowgate
