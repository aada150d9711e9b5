package client

import (
	"context"
	"sync"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/monitor"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/connection"
	"github.com/lsds/kungfu-gather/srcs/go/utils"
)

type Client struct {
	self     plan.PeerID
	token    uint32
	connPool *connectionPool
	monitor  monitor.Monitor
}

func New(self plan.PeerID, token uint32) *Client {
	return &Client{
		self:     self,
		token:    token,
		connPool: newConnectionPool(self, token),
		monitor:  monitor.GetMonitor(),
	}
}

func (c *Client) Ping(target plan.PeerID, timeout time.Duration) (time.Duration, error) {
	t0 := time.Now()
	conn, err := connection.Open(target, c.self, connection.ConnPing, c.token, timeout)
	if err != nil {
		return time.Since(t0), err
	}
	defer conn.Close()
	var empty connection.Message
	if err := conn.Send("ping", empty, connection.NoFlag, timeout); err != nil {
		return time.Since(t0), err
	}
	if err := conn.Read("ping", empty, timeout); err != nil {
		return time.Since(t0), err
	}
	return time.Since(t0), nil
}

// Wait waits a peer until it's accessible
func (c *Client) Wait(ctx context.Context, target plan.PeerID) (int, bool) {
	const period = 200 * time.Millisecond
	ping := func() bool {
		_, err := c.Ping(target, period)
		return err == nil
	}
	return utils.PollEvery(ctx, period, ping)
}

// Send sends buf to a, it returns once buf is written to the stream or fails after timeout.
func (c *Client) Send(a plan.Addr, buf []byte, timeout time.Duration) error {
	msg := connection.NewMessage(buf)
	conn := c.connPool.get(a.Peer(), connection.ConnCollective)
	if err := conn.Send(a.Name, msg, connection.NoFlag, timeout); err != nil {
		return err
	}
	c.monitor.Egress(int64(msg.Length), a.NetAddr)
	return nil
}

// Close closes all pooled connections, Send must not be called afterwards.
func (c *Client) Close() {
	c.connPool.closeAll()
}

type connKey struct {
	a plan.PeerID
	t connection.ConnType
}

type connectionPool struct {
	sync.Mutex
	self  plan.PeerID
	token uint32
	conns map[connKey]connection.Connection
}

func newConnectionPool(self plan.PeerID, token uint32) *connectionPool {
	return &connectionPool{
		self:  self,
		token: token,
		conns: make(map[connKey]connection.Connection),
	}
}

func (p *connectionPool) get(remote plan.PeerID, t connection.ConnType) connection.Connection {
	p.Lock()
	defer p.Unlock()
	key := connKey{remote, t}
	if conn, ok := p.conns[key]; ok {
		return conn
	}
	conn := connection.New(remote, p.self, t, p.token)
	p.conns[key] = conn
	return conn
}

func (p *connectionPool) closeAll() {
	p.Lock()
	defer p.Unlock()
	for k, conn := range p.conns {
		conn.Close()
		delete(p.conns, k)
	}
}
