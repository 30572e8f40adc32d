/*
Package throttle provides a leading-edge throttle for fire-and-forget callbacks.

The first call runs synchronously; every call that arrives before the
cooldown window elapses is dropped. Nothing is queued.

Basic usage:

	t, err := throttle.NewSafe(500 * time.Millisecond)
	if err != nil {
		log.Fatal(err)
	}

	button.OnClick(t.Wrap(save))

The throttled state is set only after the action returns. An action that
panics therefore leaves the throttler open and the next call runs
immediately. With Config.ResetOnError the throttler is reset before the
panic continues.

Testing:

Config.Clock accepts any clock.Clock, so windows can be driven by a fake
clock instead of real time.
*/
package throttle
