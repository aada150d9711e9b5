package collective

import "time"

// Context is the view of one rank on a group of fixed membership.
// Implementations must keep Size stable for as long as any collective call is in flight.
type Context interface {
	Rank() int
	Size() int

	// Channel returns the reliable channel between this rank and peer.
	// Messages with the same slot on one channel are delivered in send order.
	Channel(peer int) Channel

	// Slots returns the allocator shared by every collective operation issued on this context.
	Slots() *SlotAllocator

	// Timeout is the default bound of every blocking wait.
	Timeout() time.Duration
}

// Channel moves opaque byte ranges between two ranks.
type Channel interface {
	// Send returns once buf is committed to the transport, it does not wait for the receiver.
	// buf may be reused after Send returns.
	Send(slot Slot, buf []byte, timeout time.Duration) error

	// RecvInto waits for the message tagged with slot and writes it to buf.
	// A message whose length differs from len(buf) is a transport failure.
	RecvInto(slot Slot, buf []byte, timeout time.Duration) error
}
