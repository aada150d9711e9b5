package collective

import "time"

const opGather = "gather"

// GatherOptions holds the parameters of one gather call.
// Setters only record values, consistency is checked when the options are passed to Gather.
type GatherOptions struct {
	ctx Context

	input  []byte
	output []byte

	root    int
	hasRoot bool

	timeout    time.Duration
	hasTimeout bool

	tag    uint64
	hasTag bool
}

func NewGatherOptions(ctx Context) *GatherOptions {
	return &GatherOptions{
		ctx: ctx,
	}
}

// SetInput sets the contribution of this rank, every rank must use the same size.
func (o *GatherOptions) SetInput(buf []byte) {
	o.input = buf
}

// SetOutput sets the destination buffer, it is only read on the root and must hold Size() * len(input) bytes.
func (o *GatherOptions) SetOutput(buf []byte) {
	o.output = buf
}

// SetRoot sets the rank receiving the result, there is no default.
func (o *GatherOptions) SetRoot(rank int) {
	o.root = rank
	o.hasRoot = true
}

// SetTimeout overrides the default timeout of the context.
func (o *GatherOptions) SetTimeout(d time.Duration) {
	o.timeout = d
	o.hasTimeout = true
}

// SetTag makes the call use the slot built from tag instead of a slot drawn from the context allocator.
// All ranks must use the same tag, and no other operation may use it while the call is in flight.
func (o *GatherOptions) SetTag(tag uint64) {
	o.tag = tag
	o.hasTag = true
}

func (o *GatherOptions) rank() int {
	if o.ctx == nil {
		return -1
	}
	return o.ctx.Rank()
}

func (o *GatherOptions) validate() *Error {
	rank := o.rank()
	if o.ctx == nil {
		return usageError(opGather, rank, "nil context")
	}
	size := o.ctx.Size()
	if size < 1 || rank < 0 || rank >= size {
		return usageError(opGather, rank, "invalid context: rank %d of size %d", rank, size)
	}
	if !o.hasRoot {
		return usageError(opGather, rank, "root not set")
	}
	if o.root < 0 || o.root >= size {
		return usageError(opGather, rank, "root %d out of range [0, %d)", o.root, size)
	}
	if len(o.input) == 0 {
		return usageError(opGather, rank, "input size must be positive")
	}
	if o.hasTimeout && o.timeout <= 0 {
		return usageError(opGather, rank, "timeout must be positive, got %s", o.timeout)
	}
	if !o.hasTimeout && o.ctx.Timeout() <= 0 {
		return usageError(opGather, rank, "context default timeout must be positive, got %s", o.ctx.Timeout())
	}
	if rank == o.root {
		if o.output == nil {
			return usageError(opGather, rank, "missing output buffer at root %d", o.root)
		}
		if want := len(o.input) * size; len(o.output) != want {
			return usageError(opGather, rank, "output size %d != input size %d * group size %d", len(o.output), len(o.input), size)
		}
	}
	return nil
}

func (o *GatherOptions) effectiveTimeout() time.Duration {
	if o.hasTimeout {
		return o.timeout
	}
	return o.ctx.Timeout()
}

func (o *GatherOptions) slot() Slot {
	if o.hasTag {
		return BuildSlot(GatherSlotPrefix, o.tag)
	}
	return o.ctx.Slots().Next(GatherSlotPrefix)
}
