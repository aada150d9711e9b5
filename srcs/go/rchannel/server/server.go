package server

import (
	"errors"
	"net"
	"sync"

	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/connection"
)

// Server accepts connections from remote peers and hands them to a handler.
type Server struct {
	self     plan.PeerID
	handler  connection.Handler
	token    uint32
	listener net.Listener

	mu    sync.Mutex
	conns map[connection.Connection]struct{}
	wg    sync.WaitGroup
}

// New creates a Server for self, only peers presenting token are accepted.
func New(self plan.PeerID, handler connection.Handler, token uint32) *Server {
	return &Server{
		self:    self,
		handler: handler,
		token:   token,
		conns:   make(map[connection.Connection]struct{}),
	}
}

func (s *Server) Listen() error {
	listenAddr := s.self.ListenAddr()
	log.Debugf("listening: %s", listenAddr)
	l, err := net.Listen("tcp", listenAddr.String())
	if err != nil {
		return err
	}
	s.listener = l
	return nil
}

// Start listens and serves in background.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Serve()
	}()
	return nil
}

func (s *Server) Serve() {
	for {
		tcpConn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				break
			}
			log.Infof("Accept failed: %v", err)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.upgradeAndHandle(tcpConn)
		}()
	}
}

func (s *Server) upgradeAndHandle(tcpConn net.Conn) {
	conn, err := connection.UpgradeFrom(tcpConn, s.self, s.token)
	if err != nil {
		log.Warnf("rejected connection from %s: %v", tcpConn.RemoteAddr(), err)
		tcpConn.Close()
		return
	}
	if !s.track(conn) {
		conn.Close()
		return
	}
	defer s.untrack(conn)
	if n, err := s.handler.Handle(conn); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Warnf("handle %s conn from %s err: %v after handled %d messages", conn.Type(), conn.Src(), err, n)
	}
}

func (s *Server) track(conn connection.Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn connection.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns != nil {
		delete(s.conns, conn)
	}
	conn.Close()
}

// Close stops accepting, closes the accepted connections and waits for their handlers.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for conn := range conns {
		conn.Close()
	}
	s.wg.Wait()
	log.Debugf("Server Closed")
}
