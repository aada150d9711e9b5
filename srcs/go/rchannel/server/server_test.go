package server

import (
	"net"
	"testing"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/client"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/connection"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePeerID(t *testing.T) plan.PeerID {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return plan.PeerID{
		IPv4: plan.MustParseIPv4("127.0.0.1"),
		Port: uint16(l.Addr().(*net.TCPAddr).Port),
	}
}

func startServer(t *testing.T, group string) (*Server, *handler.CollectiveEndpoint) {
	self := freePeerID(t)
	e := handler.NewCollectiveEndpoint(self)
	mux := handler.Mux{
		connection.ConnPing:       &handler.PingHandler{},
		connection.ConnCollective: e,
	}
	s := New(self, mux, connection.GroupToken(group))
	require.NoError(t, s.Start())
	return s, e
}

func Test_Server(t *testing.T) {
	s, e := startServer(t, "g")
	defer s.Close()
	self := freePeerID(t)
	c := client.New(self, connection.GroupToken("g"))
	defer c.Close()

	_, err := c.Ping(s.self, time.Second)
	require.NoError(t, err)

	for i, payload := range []string{"a", "bb", "ccc"} {
		name := []string{"gather#0", "gather#1", "gather#2"}[i]
		require.NoError(t, c.Send(s.self.WithName(name), []byte(payload), time.Second))
	}
	for i, payload := range []string{"a", "bb", "ccc"} {
		name := []string{"gather#0", "gather#1", "gather#2"}[i]
		buf := make([]byte, len(payload))
		require.NoError(t, e.RecvInto(self.WithName(name), buf, time.Second))
		assert.Equal(t, payload, string(buf))
	}
}

func Test_Server_other_group(t *testing.T) {
	s, _ := startServer(t, "g1")
	defer s.Close()
	c := client.New(freePeerID(t), connection.GroupToken("g2"))
	defer c.Close()
	err := c.Send(s.self.WithName("gather#0"), []byte{1}, time.Second)
	assert.Error(t, err)
}

func Test_Server_Close(t *testing.T) {
	s, e := startServer(t, "g")
	self := freePeerID(t)
	c := client.New(self, connection.GroupToken("g"))
	defer c.Close()
	require.NoError(t, c.Send(s.self.WithName("gather#0"), []byte{1}, time.Second))
	require.NoError(t, e.RecvInto(self.WithName("gather#0"), make([]byte, 1), time.Second))

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	_, err := c.Ping(s.self, 100*time.Millisecond)
	assert.Error(t, err)
}
