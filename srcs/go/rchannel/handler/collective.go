package handler

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/lsds/kungfu-gather/srcs/go/monitor"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/connection"
)

var (
	errUnexpectedLength = errors.New("unexpected message length")
	errPeerClosed       = errors.New("connection closed")
)

// mailbox queues the messages of one (sender, name) address in arrival order.
// late counts the timed out receives whose message has not arrived yet,
// the next late messages on the address are discarded.
type mailbox struct {
	msgs    []*connection.Message
	arrived chan struct{}
	waiters int
	late    int
}

func newMailbox() *mailbox {
	return &mailbox{arrived: make(chan struct{}, 1)}
}

func (mb *mailbox) idle() bool {
	return len(mb.msgs) == 0 && mb.waiters == 0 && mb.late == 0
}

type peerState struct {
	failed chan struct{}
	err    error
}

// CollectiveEndpoint queues the messages of collective connections by sender and name
// until a RecvInto claims them.
type CollectiveEndpoint struct {
	self    plan.PeerID
	monitor monitor.Monitor

	mu        sync.Mutex
	mailboxes map[plan.Addr]*mailbox
	peers     map[plan.PeerID]*peerState
	gens      map[plan.PeerID]uint64
}

func NewCollectiveEndpoint(self plan.PeerID) *CollectiveEndpoint {
	return &CollectiveEndpoint{
		self:      self,
		monitor:   monitor.GetMonitor(),
		mailboxes: make(map[plan.Addr]*mailbox),
		peers:     make(map[plan.PeerID]*peerState),
		gens:      make(map[plan.PeerID]uint64),
	}
}

// Handle implements connection.Handler
func (e *CollectiveEndpoint) Handle(conn connection.Connection) (int, error) {
	src := conn.Src()
	gen := e.connected(src)
	n, err := connection.Stream(conn, 0, func(name string, msg *connection.Message) {
		e.handle(src, name, msg)
	})
	if err != nil {
		e.fail(src, gen, err)
	}
	return n, err
}

// Fail aborts the pending and future waits on messages from peer until it reconnects.
func (e *CollectiveEndpoint) Fail(peer plan.PeerID, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failLocked(peer, err)
}

// RecvInto waits at most timeout for the next message a and copies it into buf.
// Messages on the same address are received in arrival order.
// If the wait expires, the next message that arrives on a is dropped.
func (e *CollectiveEndpoint) RecvInto(a plan.Addr, buf []byte, timeout time.Duration) error {
	mb := e.wait(a)
	failed, peerErr := e.peerFailed(a.Peer())
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		if m := e.pop(a, mb); m != nil {
			return e.claim(a, m, buf)
		}
		select {
		case <-mb.arrived:
		case <-failed:
			if m := e.leave(a, mb, false); m != nil {
				return e.claim(a, m, buf)
			}
			return fmt.Errorf("recv %s: %w", a, peerErr())
		case <-timer.C:
			if m := e.leave(a, mb, true); m != nil {
				return e.claim(a, m, buf)
			}
			return fmt.Errorf("recv %s: %w after %s", a, os.ErrDeadlineExceeded, timeout)
		}
	}
}

func (e *CollectiveEndpoint) claim(a plan.Addr, m *connection.Message, buf []byte) error {
	if int(m.Length) != len(buf) {
		return fmt.Errorf("recv %s: %w: got %d, want %d", a, errUnexpectedLength, m.Length, len(buf))
	}
	copy(buf, m.Data)
	return nil
}

func (e *CollectiveEndpoint) wait(a plan.Addr) *mailbox {
	e.mu.Lock()
	defer e.mu.Unlock()
	mb, ok := e.mailboxes[a]
	if !ok {
		mb = newMailbox()
		e.mailboxes[a] = mb
	}
	mb.waiters++
	return mb
}

// pop takes the head of mb for a waiting receiver, nil if mb is empty.
func (e *CollectiveEndpoint) pop(a plan.Addr, mb *mailbox) *connection.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(mb.msgs) == 0 {
		return nil
	}
	return e.take(a, mb)
}

func (e *CollectiveEndpoint) take(a plan.Addr, mb *mailbox) *connection.Message {
	m := mb.msgs[0]
	mb.msgs[0] = nil
	mb.msgs = mb.msgs[1:]
	mb.waiters--
	if len(mb.msgs) > 0 {
		select {
		case mb.arrived <- struct{}{}:
		default:
		}
	}
	e.cleanup(a, mb)
	return m
}

// leave ends a wait that did not get a message, unless one arrived meanwhile.
// A timed out wait leaves a claim on the next message of a.
func (e *CollectiveEndpoint) leave(a plan.Addr, mb *mailbox, timedOut bool) *connection.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(mb.msgs) > 0 {
		return e.take(a, mb)
	}
	mb.waiters--
	if timedOut {
		mb.late++
	}
	e.cleanup(a, mb)
	return nil
}

func (e *CollectiveEndpoint) cleanup(a plan.Addr, mb *mailbox) {
	if mb.idle() && e.mailboxes[a] == mb {
		delete(e.mailboxes, a)
	}
}

func (e *CollectiveEndpoint) pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.mailboxes)
}

// connected starts a new connection generation of peer and clears its failure.
func (e *CollectiveEndpoint) connected(peer plan.PeerID) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gens[peer]++
	if s, ok := e.peers[peer]; ok && s.err != nil {
		delete(e.peers, peer)
	}
	return e.gens[peer]
}

func (e *CollectiveEndpoint) state(peer plan.PeerID) *peerState {
	s, ok := e.peers[peer]
	if !ok {
		s = &peerState{failed: make(chan struct{})}
		e.peers[peer] = s
	}
	return s
}

func (e *CollectiveEndpoint) peerFailed(peer plan.PeerID) (<-chan struct{}, func() error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.state(peer)
	return s.failed, func() error {
		e.mu.Lock()
		defer e.mu.Unlock()
		return s.err
	}
}

// fail marks peer failed, unless the connection of generation gen has been replaced.
func (e *CollectiveEndpoint) fail(peer plan.PeerID, gen uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gens[peer] != gen {
		log.Debugf("ignored failure of replaced connection from %s: %v", peer, err)
		return
	}
	e.failLocked(peer, err)
}

func (e *CollectiveEndpoint) failLocked(peer plan.PeerID, err error) {
	if err == nil {
		err = errPeerClosed
	}
	s := e.state(peer)
	if s.err != nil {
		return
	}
	s.err = fmt.Errorf("connection from %s failed: %w", peer, err)
	close(s.failed)
}

func (e *CollectiveEndpoint) handle(src plan.PeerID, name string, msg *connection.Message) {
	a := src.WithName(name)
	e.monitor.Ingress(int64(msg.Length), plan.NetAddr(src))
	e.mu.Lock()
	mb, ok := e.mailboxes[a]
	if ok && mb.late > 0 {
		mb.late--
		e.cleanup(a, mb)
		e.mu.Unlock()
		e.monitor.Discarded(int64(msg.Length), plan.NetAddr(src))
		log.Debugf("discarded late message %s (%d bytes)", a, msg.Length)
		return
	}
	if !ok {
		mb = newMailbox()
		e.mailboxes[a] = mb
	}
	mb.msgs = append(mb.msgs, msg)
	e.mu.Unlock()
	select {
	case mb.arrived <- struct{}{}:
	default:
	}
}
