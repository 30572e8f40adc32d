/*
Package concurrency coordinates awaitable actions that share one lock.

A Throttler owns a single asyncthrottle lock and decides, according to its
Mode, what happens to a call that arrives while an action is running.

Basic usage:

	refresh, err := concurrency.NewSafe(concurrency.KeepLatest, 30*time.Second)
	if err != nil {
		log.Fatal(err)
	}
	defer refresh.Dispose()

	_ = refresh.Call(ctx, func(ctx context.Context) error {
		return feed.Reload(ctx)
	})

Modes:

  - Drop: calls made while busy are ignored.
  - Enqueue: every call is queued and run in submission order by a single
    background goroutine. Call returns as soon as the action is queued.
  - Replace: every call releases the lock and starts at once. A running
    action is not interrupted, but when a newer call has superseded it, its
    caller gets nil instead of its outcome.
  - KeepLatest: a call made while busy is stored as the pending action,
    replacing any earlier pending one. It runs in the background once the
    running action completes or MaxDuration elapses, whichever comes first.
    At most one action holds the lock and at most one waits.

State Inspection:

	locked := refresh.IsLocked()         // an action is running
	waiting := refresh.HasPendingCalls() // something will run later
	n := refresh.PendingCount()          // queued, or pending plus running

Config.OnStateChange reports the same values after every transition, which
is convenient for driving a busy indicator.

Error Handling:

Errors from an action run on behalf of a waiting caller are returned to that
caller. Actions run in the background (Enqueue, and pending KeepLatest
actions) report errors and panics through Config.OnError.

Cancellation:

Supersession is result-level. Go cannot stop a running goroutine, so a
replaced or reset action runs to completion and its outcome is ignored.
Queued and pending actions keep the values of the caller's context but not
its cancellation.

Thread Safety:

All operations are safe for concurrent use.
*/
package concurrency
