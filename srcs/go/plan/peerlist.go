package plan

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// PeerList is the membership of a group, the rank of a peer is its index.
type PeerList []PeerID

func (pl PeerList) String() string {
	parts := make([]string, len(pl))
	for i, p := range pl {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

func (pl PeerList) Rank(p PeerID) (int, bool) {
	i := slices.Index(pl, p)
	return i, i >= 0
}

func (pl PeerList) Eq(ql PeerList) bool {
	return slices.Equal(pl, ql)
}

var errDuplicatedPeer = errors.New("duplicated peer")

// Validate rejects lists in which a peer would own more than one rank.
func (pl PeerList) Validate() error {
	seen := make(map[PeerID]int, len(pl))
	for i, p := range pl {
		if j, ok := seen[p]; ok {
			return fmt.Errorf("%w %s at ranks %d and %d", errDuplicatedPeer, p, j, i)
		}
		seen[p] = i
	}
	return nil
}

// ParsePeerList parses a comma separated list of peer ids.
func ParsePeerList(val string) (PeerList, error) {
	var pl PeerList
	for _, s := range strings.Split(val, ",") {
		id, err := ParsePeerID(s)
		if err != nil {
			return nil, fmt.Errorf("peer %d: %w", len(pl), err)
		}
		pl = append(pl, *id)
	}
	return pl, nil
}
