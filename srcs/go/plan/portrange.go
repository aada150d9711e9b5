package plan

import (
	"errors"
	"fmt"
)

type PortRange struct {
	Begin uint16
	End   uint16
}

var DefaultPortRange = PortRange{
	Begin: 10000,
	End:   11000,
}

var errInvalidPortRange = errors.New("invalid port range")

func ParsePortRange(val string) (*PortRange, error) {
	var begin, end uint16
	if _, err := fmt.Sscanf(val, "%d-%d", &begin, &end); err != nil {
		return nil, err
	}
	if end < begin {
		return nil, errInvalidPortRange
	}
	return &PortRange{Begin: begin, End: end}, nil
}

func (pr PortRange) Cap() int {
	return int(pr.End) - int(pr.Begin) + 1
}

func (pr PortRange) String() string {
	return fmt.Sprintf("%d-%d", pr.Begin, pr.End)
}

var errNoEnoughCapacity = errors.New("no enough capacity")

// GenLocalPeerList generates np peers on one host, taking consecutive ports from pr.
func GenLocalPeerList(host uint32, np int, pr PortRange) (PeerList, error) {
	if pr.Cap() < np {
		return nil, errNoEnoughCapacity
	}
	var pl PeerList
	for i := 0; i < np; i++ {
		pl = append(pl, PeerID{IPv4: host, Port: pr.Begin + uint16(i)})
	}
	return pl, nil
}
