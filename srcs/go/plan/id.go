package plan

import (
	"net"
	"strconv"
)

// PeerID is the unique identifier of a peer, the address its server listens on.
type PeerID NetAddr

func (p PeerID) String() string {
	return NetAddr(p).String()
}

func (p PeerID) WithName(name string) Addr {
	return NetAddr(p).WithName(name)
}

// ListenAddr returns the address the peer binds, 0.0.0.0 unless the peer is on loopback.
func (p PeerID) ListenAddr() NetAddr {
	if byte(p.IPv4>>24) == 127 {
		return NetAddr(p)
	}
	return NetAddr{Port: p.Port}
}

func (p PeerID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PeerID) UnmarshalText(text []byte) error {
	id, err := ParsePeerID(string(text))
	if err != nil {
		return err
	}
	*p = *id
	return nil
}

// ParsePeerID parses <ipv4>:<port>.
func ParsePeerID(val string) (*PeerID, error) {
	host, portStr, err := net.SplitHostPort(val)
	if err != nil {
		return nil, err
	}
	ipv4, err := ParseIPv4(host)
	if err != nil {
		return nil, err
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return nil, errInvalidPort
	}
	return &PeerID{IPv4: ipv4, Port: uint16(port)}, nil
}
