package connection

import (
	"errors"
	"io"
)

// Handler serves an upgraded connection, it returns the number of messages handled.
type Handler interface {
	Handle(conn Connection) (int, error)
}

// Accept reads one named message from conn. If limit > 0, longer messages are rejected.
func Accept(conn Connection, limit uint32) (string, *Message, error) {
	r := conn.Conn()
	var mh MessageHeader
	if err := mh.ReadFrom(r); err != nil {
		return "", nil, err
	}
	msg := new(Message)
	if err := msg.ReadFrom(r, limit); err != nil {
		return "", nil, err
	}
	return string(mh.Name), msg, nil
}

// Stream passes the messages of conn to handle until the peer closes it.
// Closing between two messages is not an error.
func Stream(conn Connection, limit uint32, handle func(name string, msg *Message)) (int, error) {
	var n int
	for {
		name, msg, err := Accept(conn, limit)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		handle(name, msg)
		n++
	}
}
