package bus

import "context"

// Handler receives one raw event payload. It must not block the subscriber
// loop for long; decoding failures are the handler's problem and must never
// panic.
type Handler func(channel string, payload []byte)

// Bus is the cross-shard broadcast fabric. Delivery is at-most-once and
// fire-and-forget: a shard that is down or lagging simply misses the event
// and converges again on its next full reload. There is no ordering guarantee
// across channels.
type Bus interface {
	// Publish broadcasts payload to every current subscriber of channel.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe registers handler for the given channels and starts the
	// receive loop in the background. It returns once the subscription is
	// confirmed. The loop stops when ctx is cancelled.
	Subscribe(ctx context.Context, handler Handler, channels ...string) error
}
