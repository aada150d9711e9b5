// Package inproc runs every rank of a group as a goroutine of the current process.
package inproc

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/collective"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/execution"
)

var (
	errSevered         = errors.New("connection severed")
	errUnexpectedLen   = errors.New("unexpected message length")
	errSlotInUse       = errors.New("slot already holds an undelivered message")
	errInvalidPeerRank = errors.New("invalid peer rank")
)

type mailboxKey struct {
	src, dst int
	slot     collective.Slot
}

type pair struct {
	a, b int
}

func newPair(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// Group is the shared transport of the ranks of one in-process group.
type Group struct {
	size int

	mu        sync.Mutex
	mailboxes map[mailboxKey]chan []byte
	severed   map[pair]chan struct{}
}

func newGroup(size int) *Group {
	return &Group{
		size:      size,
		mailboxes: make(map[mailboxKey]chan []byte),
		severed:   make(map[pair]chan struct{}),
	}
}

// NewGroup creates the contexts of a group of size ranks, all sharing the default timeout.
func NewGroup(size int, timeout time.Duration) []*Context {
	g := newGroup(size)
	var cs []*Context
	for rank := 0; rank < size; rank++ {
		cs = append(cs, &Context{
			group:   g,
			rank:    rank,
			slots:   collective.NewSlotAllocator(0),
			timeout: timeout,
		})
	}
	return cs
}

// Spawn runs f for every rank of a new group concurrently and returns the first error.
func Spawn(size int, timeout time.Duration, f func(c *Context) error) error {
	cs := NewGroup(size, timeout)
	var run execution.RankFunc = func(rank int) error {
		if err := f(cs[rank]); err != nil {
			return fmt.Errorf("rank %d: %w", rank, err)
		}
		return nil
	}
	ranks := make([]int, size)
	for i := range ranks {
		ranks[i] = i
	}
	return run.Par(ranks, 0)
}

func (g *Group) mailbox(k mailboxKey) chan []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.mailboxes[k]
	if !ok {
		m = make(chan []byte, 1)
		g.mailboxes[k] = m
	}
	return m
}

func (g *Group) release(k mailboxKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.mailboxes, k)
}

func (g *Group) severedCh(p pair) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.severed[p]
	if !ok {
		ch = make(chan struct{})
		g.severed[p] = ch
	}
	return ch
}

func (g *Group) sever(p pair) {
	ch := g.severedCh(p)
	g.mu.Lock()
	defer g.mu.Unlock()
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Context implements collective.Context for one rank of a Group.
type Context struct {
	group   *Group
	rank    int
	slots   *collective.SlotAllocator
	timeout time.Duration
}

func (c *Context) Rank() int { return c.rank }

func (c *Context) Size() int { return c.group.size }

func (c *Context) Slots() *collective.SlotAllocator { return c.slots }

func (c *Context) Timeout() time.Duration { return c.timeout }

func (c *Context) Channel(peer int) collective.Channel {
	return &channel{group: c.group, self: c.rank, peer: peer}
}

// Sever breaks the connection between this rank and peer in both directions.
func (c *Context) Sever(peer int) {
	c.group.sever(newPair(c.rank, peer))
}

type channel struct {
	group *Group
	self  int
	peer  int
}

func (ch *channel) check() error {
	if ch.peer < 0 || ch.peer >= ch.group.size {
		return errInvalidPeerRank
	}
	select {
	case <-ch.group.severedCh(newPair(ch.self, ch.peer)):
		return errSevered
	default:
		return nil
	}
}

func (ch *channel) Send(slot collective.Slot, buf []byte, timeout time.Duration) error {
	if err := ch.check(); err != nil {
		return err
	}
	bs := make([]byte, len(buf))
	copy(bs, buf)
	m := ch.group.mailbox(mailboxKey{src: ch.self, dst: ch.peer, slot: slot})
	select {
	case m <- bs:
		return nil
	default:
	}
	select {
	case m <- bs:
		return nil
	case <-ch.group.severedCh(newPair(ch.self, ch.peer)):
		return errSevered
	case <-time.After(timeout):
		return fmt.Errorf("send to rank %d: %w (%s)", ch.peer, collective.ErrTimedOut, errSlotInUse)
	}
}

func (ch *channel) RecvInto(slot collective.Slot, buf []byte, timeout time.Duration) error {
	if err := ch.check(); err != nil {
		return err
	}
	k := mailboxKey{src: ch.peer, dst: ch.self, slot: slot}
	m := ch.group.mailbox(k)
	select {
	case bs := <-m:
		ch.group.release(k)
		if len(bs) != len(buf) {
			return fmt.Errorf("%w: got %d, want %d", errUnexpectedLen, len(bs), len(buf))
		}
		copy(buf, bs)
		return nil
	case <-ch.group.severedCh(newPair(ch.self, ch.peer)):
		return errSevered
	case <-time.After(timeout):
		return fmt.Errorf("recv from rank %d: %w", ch.peer, collective.ErrTimedOut)
	}
}
