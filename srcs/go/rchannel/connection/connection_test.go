package connection

import (
	"errors"
	"net"
	"os"
	"testing"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listenLocal(t *testing.T) (net.Listener, plan.PeerID) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	return l, plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: uint16(addr.Port)}
}

func Test_Open(t *testing.T) {
	l, self := listenLocal(t)
	defer l.Close()
	token := GroupToken("test")
	client := plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 40000}

	accepted := make(chan Connection, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		c, err := UpgradeFrom(conn, self, token)
		if err != nil {
			conn.Close()
			return
		}
		accepted <- c
	}()

	c, err := Open(self, client, ConnCollective, token, time.Second)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Send("gather#1", NewMessage([]byte("hi")), NoFlag, time.Second))

	s := <-accepted
	defer s.Close()
	assert.Equal(t, client, s.Src())
	assert.Equal(t, ConnCollective, s.Type())
	name, msg, err := Accept(s, 0)
	require.NoError(t, err)
	assert.Equal(t, "gather#1", name)
	assert.Equal(t, "hi", string(msg.Data))
}

func Test_Open_invalid_token(t *testing.T) {
	l, self := listenLocal(t)
	defer l.Close()
	serverErr := make(chan error, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			serverErr <- err
			return
		}
		defer conn.Close()
		_, err = UpgradeFrom(conn, self, GroupToken("server"))
		serverErr <- err
	}()

	_, err := Open(self, plan.PeerID{}, ConnCollective, GroupToken("client"), time.Second)
	assert.True(t, errors.Is(err, errInvalidToken), "%v", err)
	assert.True(t, errors.Is(<-serverErr, errInvalidToken))
}

func Test_Open_timeout(t *testing.T) {
	l, self := listenLocal(t)
	l.Close()
	t0 := time.Now()
	_, err := Open(self, plan.PeerID{}, ConnCollective, 0, 100*time.Millisecond)
	assert.True(t, errors.Is(err, os.ErrDeadlineExceeded), "%v", err)
	assert.Less(t, time.Since(t0), 2*time.Second)
}
