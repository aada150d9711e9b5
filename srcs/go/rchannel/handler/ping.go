package handler

import (
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/connection"
)

// PingHandler echoes one empty message, it lets peers check each other before the first collective call.
type PingHandler struct{}

func (h *PingHandler) Handle(conn connection.Connection) (int, error) {
	name, msg, err := connection.Accept(conn, 1)
	if err != nil {
		return 0, err
	}
	return 1, connection.WriteFrame(conn.Conn(), name, connection.NoFlag, *msg)
}
