/*
Package asyncthrottle provides a single-slot lock for awaitable actions.

A call either takes the lock and runs its action, or finds the lock held and
returns at once. Nothing is queued.

	lock := asyncthrottle.NewWithConfig(asyncthrottle.Config{
		MaxDuration: 10 * time.Second,
		Name:        "submit",
	})

	err := lock.Call(ctx, func(ctx context.Context) error {
		return api.Submit(ctx, form)
	})

MaxDuration bounds how long a slow action can hold the lock. When it
elapses the lock is released while the action keeps running; its later
completion does not touch the lock again, even if another call has taken it
in the meantime.

Errors returned by the action, and panics, propagate to the caller. With
ResetOnError the lock is cleared before the failure is returned.
*/
package asyncthrottle
