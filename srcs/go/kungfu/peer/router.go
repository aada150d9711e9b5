package peer

import (
	"context"
	"errors"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/collective"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/client"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/connection"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/handler"
)

type router struct {
	self       plan.PeerID
	Collective *handler.CollectiveEndpoint
	client     *client.Client
	mux        handler.Mux
}

func NewRouter(self plan.PeerID, token uint32) *router {
	collective := handler.NewCollectiveEndpoint(self)
	return &router{
		self:       self,
		Collective: collective,
		client:     client.New(self, token),
		mux: handler.Mux{
			connection.ConnPing:       &handler.PingHandler{},
			connection.ConnCollective: collective,
		},
	}
}

func (r *router) Self() plan.PeerID {
	return r.self
}

// Send sends data in buf to given Addr
func (r *router) Send(a plan.Addr, buf []byte, timeout time.Duration) error {
	return r.client.Send(a, buf, timeout)
}

var errWaitPeerFailed = errors.New("wait peer failed")

func (r *router) Wait(ctx context.Context, target plan.PeerID) (int, error) {
	n, ok := r.client.Wait(ctx, target)
	if !ok {
		return n, errWaitPeerFailed
	}
	return n, nil
}

// Handle implements connection.Handler
func (r *router) Handle(conn connection.Connection) (int, error) {
	return r.mux.Handle(conn)
}

func (r *router) Close() {
	r.client.Close()
}

// channel carries the messages of collective operations between self and one remote peer.
// The slot of a message travels as its name.
type channel struct {
	r      *router
	remote plan.PeerID
}

func (c *channel) Send(slot collective.Slot, buf []byte, timeout time.Duration) error {
	return c.r.Send(c.remote.WithName(slot.String()), buf, timeout)
}

func (c *channel) RecvInto(slot collective.Slot, buf []byte, timeout time.Duration) error {
	return c.r.Collective.RecvInto(c.remote.WithName(slot.String()), buf, timeout)
}

var errInvalidPeerRank = errors.New("invalid peer rank")

type invalidChannel struct {
	peer int
}

func (c invalidChannel) Send(collective.Slot, []byte, time.Duration) error {
	return errInvalidPeerRank
}

func (c invalidChannel) RecvInto(collective.Slot, []byte, time.Duration) error {
	return errInvalidPeerRank
}
