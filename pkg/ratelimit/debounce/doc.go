// Package debounce provides a trailing-edge debouncer for fire-and-forget
// callbacks. Each call replaces the waiting one; only the last call of a
// burst runs, once the burst has been quiet for the configured duration.
//
// Actions run on the timer's goroutine, after the caller has returned, so a
// panicking action is recovered and reported through Config.OnError rather
// than propagated.
package debounce
