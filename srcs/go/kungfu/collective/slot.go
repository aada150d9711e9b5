package collective

import (
	"fmt"
	"sync/atomic"
)

// Slot tags the messages of one collective operation instance on every channel it uses.
// The top 8 bits hold the prefix of the collective kind, the lower 56 bits a sequence number or user tag.
type Slot uint64

type SlotPrefix uint8

const (
	GatherSlotPrefix SlotPrefix = 0x01
)

const (
	seqBits = 56
	seqMask = 1<<seqBits - 1
)

var slotPrefixNames = map[SlotPrefix]string{
	GatherSlotPrefix: "gather",
}

func (p SlotPrefix) String() string {
	if name, ok := slotPrefixNames[p]; ok {
		return name
	}
	return fmt.Sprintf("prefix(%d)", uint8(p))
}

// BuildSlot composes a slot from a prefix and a sequence number, seq is truncated to 56 bits.
func BuildSlot(prefix SlotPrefix, seq uint64) Slot {
	return Slot(uint64(prefix)<<seqBits | seq&seqMask)
}

func (s Slot) Prefix() SlotPrefix {
	return SlotPrefix(s >> seqBits)
}

func (s Slot) Seq() uint64 {
	return uint64(s) & seqMask
}

func (s Slot) String() string {
	return fmt.Sprintf("%s#%d", s.Prefix(), s.Seq())
}

// SlotAllocator is the per-context counter of collective operation instances.
//
// Every rank owns one allocator per context and the allocators only agree on slot values if
// all ranks issue their collective operations in the same relative order.
// This is an obligation of the caller, it is not checked.
type SlotAllocator struct {
	next uint64
}

// NewSlotAllocator returns an allocator whose first slot has sequence number base.
func NewSlotAllocator(base uint64) *SlotAllocator {
	return &SlotAllocator{next: base}
}

// Next issues the slot of a new operation instance. It is safe for concurrent use,
// but concurrent callers on one rank get slots in an unspecified order.
func (a *SlotAllocator) Next(prefix SlotPrefix) Slot {
	seq := atomic.AddUint64(&a.next, 1) - 1
	return BuildSlot(prefix, seq)
}

// Issued returns the sequence number the next call of Next will use.
func (a *SlotAllocator) Issued() uint64 {
	return atomic.LoadUint64(&a.next)
}
