package collective

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingContext counts channel activity and never blocks.
type recordingContext struct {
	rank, size int
	timeout    time.Duration
	slots      SlotAllocator
	sends      int32
	recvs      int32
	lastSlot   Slot
}

func (c *recordingContext) Rank() int                { return c.rank }
func (c *recordingContext) Size() int                { return c.size }
func (c *recordingContext) Slots() *SlotAllocator    { return &c.slots }
func (c *recordingContext) Timeout() time.Duration   { return c.timeout }
func (c *recordingContext) Channel(peer int) Channel { return &recordingChannel{c} }

type recordingChannel struct{ c *recordingContext }

func (ch *recordingChannel) Send(slot Slot, buf []byte, timeout time.Duration) error {
	atomic.AddInt32(&ch.c.sends, 1)
	ch.c.lastSlot = slot
	return nil
}

func (ch *recordingChannel) RecvInto(slot Slot, buf []byte, timeout time.Duration) error {
	atomic.AddInt32(&ch.c.recvs, 1)
	return nil
}

func (c *recordingContext) activity() int32 {
	return atomic.LoadInt32(&c.sends) + atomic.LoadInt32(&c.recvs)
}

func Test_GatherOptions_usage_errors(t *testing.T) {
	cases := []struct {
		name  string
		rank  int
		setup func(o *GatherOptions)
	}{
		{"root not set", 0, func(o *GatherOptions) {
			o.SetInput(make([]byte, 4))
			o.SetOutput(make([]byte, 16))
		}},
		{"root too large", 1, func(o *GatherOptions) {
			o.SetInput(make([]byte, 4))
			o.SetRoot(4)
		}},
		{"negative root", 1, func(o *GatherOptions) {
			o.SetInput(make([]byte, 4))
			o.SetRoot(-1)
		}},
		{"empty input", 1, func(o *GatherOptions) {
			o.SetInput(nil)
			o.SetRoot(0)
		}},
		{"zero timeout", 1, func(o *GatherOptions) {
			o.SetInput(make([]byte, 4))
			o.SetRoot(0)
			o.SetTimeout(0)
		}},
		{"negative timeout", 1, func(o *GatherOptions) {
			o.SetInput(make([]byte, 4))
			o.SetRoot(0)
			o.SetTimeout(-time.Second)
		}},
		{"missing output at root", 2, func(o *GatherOptions) {
			o.SetInput(make([]byte, 4))
			o.SetRoot(2)
		}},
		{"output too small", 0, func(o *GatherOptions) {
			o.SetInput(make([]byte, 4))
			o.SetOutput(make([]byte, 15))
			o.SetRoot(0)
		}},
		{"output too large", 0, func(o *GatherOptions) {
			o.SetInput(make([]byte, 4))
			o.SetOutput(make([]byte, 17))
			o.SetRoot(0)
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := &recordingContext{rank: c.rank, size: 4, timeout: time.Second}
			o := NewGatherOptions(ctx)
			c.setup(o)
			err := Gather(o)
			require.Error(t, err)
			assert.Equal(t, UsageError, KindOf(err), "%v", err)
			assert.Zero(t, ctx.activity(), "no data movement expected")
			assert.Zero(t, ctx.slots.Issued(), "no slot should be consumed")
		})
	}
}

func Test_GatherOptions_nil_context(t *testing.T) {
	o := NewGatherOptions(nil)
	o.SetInput([]byte{1})
	o.SetRoot(0)
	err := Gather(o)
	assert.Equal(t, UsageError, KindOf(err))
}

func Test_GatherOptions_non_root_ignores_output(t *testing.T) {
	ctx := &recordingContext{rank: 1, size: 3, timeout: time.Second}
	o := NewGatherOptions(ctx)
	o.SetInput(make([]byte, 8))
	o.SetRoot(0)
	require.NoError(t, Gather(o))

	// a bogus output is never looked at on a non-root rank
	o.SetOutput(make([]byte, 1))
	require.NoError(t, Gather(o))
	assert.Equal(t, int32(2), ctx.sends)
	assert.Equal(t, int32(0), ctx.recvs)
}

func Test_GatherOptions_timeout(t *testing.T) {
	ctx := &recordingContext{rank: 0, size: 2, timeout: time.Second}
	o := NewGatherOptions(ctx)
	assert.Equal(t, time.Second, o.effectiveTimeout())
	o.SetTimeout(10 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, o.effectiveTimeout())
}

func Test_GatherOptions_tag(t *testing.T) {
	ctx := &recordingContext{rank: 1, size: 2, timeout: time.Second}
	o := NewGatherOptions(ctx)
	o.SetInput([]byte{1})
	o.SetRoot(0)
	require.NoError(t, Gather(o))
	assert.Equal(t, BuildSlot(GatherSlotPrefix, 0), ctx.lastSlot)

	o.SetTag(77)
	require.NoError(t, Gather(o))
	assert.Equal(t, BuildSlot(GatherSlotPrefix, 77), ctx.lastSlot)
	assert.Equal(t, uint64(1), ctx.slots.Issued(), "tagged calls do not advance the allocator")
}
