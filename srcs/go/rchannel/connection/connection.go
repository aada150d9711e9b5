package connection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/lsds/kungfu-gather/srcs/go/utils"
)

// Connection is a simplex logical connection from one peer to another
type Connection interface {
	io.Closer

	Conn() net.Conn
	Type() ConnType
	Src() plan.PeerID
	Dest() plan.PeerID
	Send(name string, m Message, flags uint32, timeout time.Duration) error
	Read(name string, m Message, timeout time.Duration) error
}

const handshakeTimeout = 5 * time.Second

var (
	errInvalidToken            = errors.New("invalid token")
	errCantEstablishConnection = errors.New("can't establish connection")
	errUnexpectedName          = errors.New("unexpected message name")
	errClosed                  = errors.New("connection closed")
)

// UpgradeFrom performs the server side handshake of a TCP connection.
// The ACK always carries the token of the server so that the client can report the mismatch.
func UpgradeFrom(conn net.Conn, self plan.PeerID, token uint32) (Connection, error) {
	conn.SetDeadline(time.Now().Add(handshakeTimeout))
	defer conn.SetDeadline(time.Time{})
	var ch connectionHeader
	if err := ch.ReadFrom(conn); err != nil {
		return nil, err
	}
	ack := connectionACK{
		Token: token,
	}
	if err := ack.WriteTo(conn); err != nil {
		return nil, err
	}
	src := plan.PeerID{IPv4: ch.SrcIPv4, Port: ch.SrcPort}
	if ch.Token != token {
		return nil, fmt.Errorf("%w from %s", errInvalidToken, src)
	}
	return &tcpConnection{
		src:      src,
		dest:     self,
		connType: ConnType(ch.Type),
		conn:     conn,
	}, nil
}

// Open dials remote and completes the handshake before timeout.
func Open(remote, local plan.PeerID, t ConnType, token uint32, timeout time.Duration) (Connection, error) {
	c := New(remote, local, t, token)
	if err := c.initOnce(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	return c, nil
}

// New returns a connection that is established on first use and re-established after a failure.
func New(remote, local plan.PeerID, t ConnType, token uint32) *tcpConnection {
	return &tcpConnection{
		src:      local,
		dest:     remote,
		connType: t,
		token:    token,
	}
}

type tcpConnection struct {
	sync.Mutex
	src, dest plan.PeerID
	conn      net.Conn
	connType  ConnType
	token     uint32
	closed    bool
}

func (c *tcpConnection) Conn() net.Conn {
	return c.conn
}

func (c *tcpConnection) Type() ConnType {
	return c.connType
}

func (c *tcpConnection) Src() plan.PeerID {
	return c.src
}

func (c *tcpConnection) Dest() plan.PeerID {
	return c.dest
}

func (c *tcpConnection) dial(deadline time.Time) (net.Conn, error) {
	d := net.Dialer{Deadline: deadline}
	conn, err := d.Dial("tcp", c.dest.String())
	if err != nil {
		return nil, err
	}
	conn.SetDeadline(deadline)
	h := connectionHeader{
		Type:    uint16(c.connType),
		SrcPort: c.src.Port,
		SrcIPv4: c.src.IPv4,
		Token:   c.token,
	}
	if err := h.WriteTo(conn); err != nil {
		conn.Close()
		return nil, err
	}
	var ack connectionACK
	if err := ack.ReadFrom(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if ack.Token != c.token {
		conn.Close()
		return nil, fmt.Errorf("%w from %s", errInvalidToken, c.dest)
	}
	conn.SetDeadline(time.Time{})
	return conn, nil
}

func (c *tcpConnection) initOnce(deadline time.Time) error {
	c.Lock()
	defer c.Unlock()
	return c.init(deadline)
}

// init must be called with c locked.
func (c *tcpConnection) init(deadline time.Time) error {
	if c.closed {
		return errClosed
	}
	if c.conn != nil {
		return nil
	}
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()
	t0 := time.Now()
	var lastErr error
	n, ok := utils.PollEvery(ctx, config.ConnRetryPeriod, func() bool {
		conn, err := c.dial(deadline)
		if err != nil {
			lastErr = err
			return errors.Is(err, errInvalidToken)
		}
		c.conn = conn
		return true
	})
	if c.conn != nil {
		log.Debugf("%s connection to #<%s> established after %d trials, took %s", c.connType, c.dest, n+1, time.Since(t0))
		return nil
	}
	if ok {
		return lastErr
	}
	if lastErr == nil {
		lastErr = errCantEstablishConnection
	}
	return fmt.Errorf("%w: connecting to %s after %d trials: %v", os.ErrDeadlineExceeded, c.dest, n, lastErr)
}

// reset drops a stream whose framing may be broken, it must be called with c locked.
func (c *tcpConnection) reset() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *tcpConnection) Send(name string, m Message, flags uint32, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	c.Lock()
	defer c.Unlock()
	if err := c.init(deadline); err != nil {
		return err
	}
	c.conn.SetWriteDeadline(deadline)
	if err := WriteFrame(c.conn, name, flags, m); err != nil {
		c.reset()
		return err
	}
	return nil
}

func (c *tcpConnection) Read(name string, m Message, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	c.Lock()
	defer c.Unlock()
	if err := c.init(deadline); err != nil {
		return err
	}
	c.conn.SetReadDeadline(deadline)
	var mh MessageHeader
	if err := mh.ReadFrom(c.conn); err != nil {
		c.reset()
		return err
	}
	if string(mh.Name) != name {
		c.reset()
		return fmt.Errorf("%w: %q, want %q", errUnexpectedName, mh.Name, name)
	}
	if err := m.ReadInto(c.conn); err != nil {
		c.reset()
		return err
	}
	return nil
}

// Close closes the underlying stream, a closed connection is never re-established.
func (c *tcpConnection) Close() error {
	c.Lock()
	defer c.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
