// Package distributed provides cross-instance admission gates using Redis as
// the coordination backend.
//
// The primitives in the ratelimit packages coordinate calls inside one
// process. When several instances of a service must agree, for example to
// send one reminder email per user per hour or to run one cache rebuild at a
// time, a Gate keeps the state in Redis instead.
//
// # Kinds
//
//   - Cooldown: the first call on any instance runs; every call on every
//     instance is rejected until Duration elapses. A failing action reopens
//     the gate, matching the local throttle.
//   - Lock: one action at a time across all instances. The gate reopens when
//     the action completes, or after Duration if the holder never returns.
//
// # Quick Start
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//
//	lock, err := distributed.NewLock(distributed.Config{
//		Redis:    rdb,
//		Key:      "jobs:rebuild-index",
//		Duration: 5 * time.Minute,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ran, err := lock.TryCall(ctx, rebuildIndex)
//
// # Ownership
//
// Each acquisition stores a unique token (google/uuid) under the key with
// SET NX PX. Release runs a Lua compare-and-delete, so a holder whose hold
// expired cannot release a gate another instance has since acquired.
//
// # Redis Failures
//
// Redis errors are returned as *RedisError. With FailOpen the action runs
// anyway when Redis cannot be reached.
package distributed
