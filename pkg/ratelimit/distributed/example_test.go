package distributed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// Example_lock demonstrates one rebuild at a time across instances.
func Example_lock() {
	// An in-process Redis; in production pass your own client.
	mr, err := miniredis.Run()
	if err != nil {
		log.Fatal(err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	lock, err := NewLock(Config{
		Redis:      rdb,
		Key:        "example:rebuild",
		Duration:   time.Minute,
		InstanceID: "example_instance_1",
	})
	if err != nil {
		log.Fatalf("Failed to create lock: %v", err)
	}

	ctx := context.Background()
	_ = lock.Call(ctx, func(ctx context.Context) error {
		held, _ := lock.IsLocked(ctx)
		fmt.Println("rebuilding, locked:", held)

		ran, _ := lock.TryCall(ctx, func(context.Context) error { return nil })
		fmt.Println("second rebuild ran:", ran)
		return nil
	})

	held, _ := lock.IsLocked(ctx)
	fmt.Println("after rebuild, locked:", held)

	// Output:
	// rebuilding, locked: true
	// second rebuild ran: false
	// after rebuild, locked: false
}

// Example_cooldown demonstrates one reminder per hour across instances.
func Example_cooldown() {
	mr, err := miniredis.Run()
	if err != nil {
		log.Fatal(err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	instance1, _ := NewCooldown(Config{Redis: rdb, Key: "example:reminder:42", Duration: time.Hour, InstanceID: "server-1"})
	instance2, _ := NewCooldown(Config{Redis: rdb, Key: "example:reminder:42", Duration: time.Hour, InstanceID: "server-2"})

	send := func(context.Context) error { return nil }
	first, _ := instance1.TryCall(ctx, send)
	second, _ := instance2.TryCall(ctx, send)
	remaining, _ := instance2.Remaining(ctx)

	fmt.Println("server-1 sent:", first)
	fmt.Println("server-2 sent:", second)
	fmt.Println("cooldown:", remaining)

	// Output:
	// server-1 sent: true
	// server-2 sent: false
	// cooldown: 1h0m0s
}
