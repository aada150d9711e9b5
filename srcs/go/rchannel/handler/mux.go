package handler

import (
	"fmt"

	"github.com/lsds/kungfu-gather/srcs/go/rchannel/connection"
)

// Mux routes a connection to the handler of its type.
type Mux map[connection.ConnType]connection.Handler

func (m Mux) Handle(conn connection.Connection) (int, error) {
	h, ok := m[conn.Type()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", connection.ErrInvalidConnectionType, conn.Type())
	}
	return h.Handle(conn)
}
