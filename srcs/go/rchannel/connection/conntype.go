package connection

import (
	"errors"
	"fmt"
)

// ConnType selects the handler of a connection on the server side.
type ConnType uint16

const (
	ConnPing ConnType = iota
	ConnCollective
)

var ErrInvalidConnectionType = errors.New("invalid connection type")

var connTypeNames = map[ConnType]string{
	ConnPing:       "Ping",
	ConnCollective: "Collective",
}

func (t ConnType) String() string {
	if name, ok := connTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ConnType(%d)", uint16(t))
}
