/*
Package asyncdebounce provides a debouncer for awaitable actions that
return a value.

Each Run waits for a quiet period. If another Run arrives meanwhile, the
earlier one returns immediately with no result. Once the wait completes the
action runs, and its result is returned only if no newer call arrived while
it was running:

	search := asyncdebounce.New[[]Hit](300 * time.Millisecond)

	hits, ok, err := search.Run(ctx, func(ctx context.Context) ([]Hit, error) {
		return index.Query(ctx, q)
	})
	if err != nil {
		return err
	}
	if !ok {
		return nil // a newer query owns the result
	}

Supersession is result-level: an action that has started is never
interrupted, but the value it produces is dropped.
*/
package asyncdebounce
