package monitor

import (
	"net"
	"net/http"
	"strconv"

	"github.com/lsds/kungfu-gather/srcs/go/log"
)

type Server struct {
	srv *http.Server
}

// StartServer serves the default monitor on /metrics at the given port.
func StartServer(port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", defaultMonitor)
	s := &Server{
		srv: &http.Server{
			Handler: mux,
			Addr:    net.JoinHostPort("0.0.0.0", strconv.Itoa(port)),
		},
	}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("monitoring server stopped: %v", err)
		}
	}()
	return s
}

func (s *Server) Stop() error {
	return s.srv.Close()
}
