package plan

import (
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"strconv"
)

// NetAddr is an IPv4 endpoint, packed so that it can be used as a map key and sent in a handshake.
type NetAddr struct {
	IPv4 uint32
	Port uint16
}

func (a NetAddr) String() string {
	return net.JoinHostPort(FormatIPv4(a.IPv4), strconv.Itoa(int(a.Port)))
}

// WithName returns the address of channel name on a.
func (a NetAddr) WithName(name string) Addr {
	return Addr{NetAddr: a, Name: name}
}

// Addr identifies one logical channel on a peer.
// Collective operations use the slot of the call as Name, so that calls never share a channel.
type Addr struct {
	NetAddr
	Name string
}

func (a Addr) String() string {
	return a.Name + "@" + a.NetAddr.String()
}

func (a Addr) Peer() PeerID {
	return PeerID(a.NetAddr)
}

var (
	errInvalidIPv4 = errors.New("invalid IPv4")
	errInvalidPort = errors.New("invalid port")
)

func FormatIPv4(ipv4 uint32) string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], ipv4)
	return netip.AddrFrom4(b).String()
}

// ParseIPv4 accepts dotted IPv4 literals only, host names are not resolved.
func ParseIPv4(host string) (uint32, error) {
	ip, err := netip.ParseAddr(host)
	if err != nil || !ip.Is4() {
		return 0, errInvalidIPv4
	}
	b := ip.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}

func MustParseIPv4(host string) uint32 {
	ipv4, err := ParseIPv4(host)
	if err != nil {
		panic(err)
	}
	return ipv4
}
