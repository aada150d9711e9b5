package peer

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/collective"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freePeers(t *testing.T, np int) plan.PeerList {
	var pl plan.PeerList
	for i := 0; i < np; i++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer l.Close()
		pl = append(pl, plan.PeerID{
			IPv4: plan.MustParseIPv4("127.0.0.1"),
			Port: uint16(l.Addr().(*net.TCPAddr).Port),
		})
	}
	return pl
}

func startPeers(t *testing.T, np int, groups ...string) []*Peer {
	pl := freePeers(t, np)
	var ps []*Peer
	for i, self := range pl {
		group := t.Name()
		if i < len(groups) {
			group = groups[i]
		}
		p, err := NewFromConfig(&env.Config{
			Self:    self,
			Peers:   pl,
			Group:   group,
			Timeout: 5 * time.Second,
		})
		require.NoError(t, err)
		require.NoError(t, p.Start())
		t.Cleanup(func() { p.Close() })
		ps = append(ps, p)
	}
	return ps
}

func runAll(ps []*Peer, f func(p *Peer) error) []error {
	errs := make([]error, len(ps))
	var wg sync.WaitGroup
	for i, p := range ps {
		wg.Add(1)
		go func(i int, p *Peer) {
			defer wg.Done()
			errs[i] = f(p)
		}(i, p)
	}
	wg.Wait()
	return errs
}

func gather(p *Peer, root int, x, y []byte, timeout time.Duration) error {
	opts := collective.NewGatherOptions(p)
	opts.SetInput(x)
	opts.SetRoot(root)
	if p.Rank() == root {
		opts.SetOutput(y)
	}
	if timeout > 0 {
		opts.SetTimeout(timeout)
	}
	return collective.Gather(opts)
}

func Test_Peer_Gather(t *testing.T) {
	const np = 4
	const count = 1000
	ps := startPeers(t, np)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ps[0].WaitPeers(ctx))

	errs := runAll(ps, func(p *Peer) error {
		x := base.NewVector(count, base.U64)
		y := base.NewVector(count*np, base.U64)
		for root := 0; root < np; root++ {
			for i := range x.AsU64() {
				x.AsU64()[i] = uint64(p.Rank() + root*np)
			}
			if err := gather(p, root, x.Data, y.Data, 0); err != nil {
				return err
			}
			if p.Rank() != root {
				continue
			}
			for j := 0; j < np; j++ {
				seg := y.Slice(j*count, (j+1)*count).AsU64()
				for _, v := range seg {
					if v != uint64(j+root*np) {
						return fmt.Errorf("root %d: segment %d holds %d", root, j, v)
					}
				}
			}
		}
		return nil
	})
	for i, err := range errs {
		assert.NoError(t, err, "rank %d", i)
	}
}

func Test_Peer_Gather_late_message_discarded(t *testing.T) {
	ps := startPeers(t, 2)
	y := make([]byte, 2)

	err := gather(ps[0], 0, []byte{10}, y, 50*time.Millisecond)
	require.True(t, collective.IsTimeout(err), "%v", err)

	// rank 1 catches up on the slot rank 0 gave up
	require.NoError(t, gather(ps[1], 0, []byte{11}, nil, 0))

	errs := runAll(ps, func(p *Peer) error {
		return gather(p, 0, []byte{byte(20 + p.Rank())}, y, 0)
	})
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, []byte{20, 21}, y)
}

func Test_Peer_Gather_reused_tag(t *testing.T) {
	ps := startPeers(t, 2)
	const tag = 7
	tagged := func(p *Peer, x, y []byte) error {
		opts := collective.NewGatherOptions(p)
		opts.SetInput(x)
		opts.SetRoot(0)
		opts.SetTag(tag)
		if p.Rank() == 0 {
			opts.SetOutput(y)
		}
		return collective.Gather(opts)
	}

	// the leaf sends on both calls before the root receives
	require.NoError(t, tagged(ps[1], []byte{1, 1}, nil))
	require.NoError(t, tagged(ps[1], []byte{2, 2}, nil))

	y := make([]byte, 4)
	require.NoError(t, tagged(ps[0], []byte{0, 0}, y))
	assert.Equal(t, []byte{0, 0, 1, 1}, y)
	require.NoError(t, tagged(ps[0], []byte{9, 9}, y))
	assert.Equal(t, []byte{9, 9, 2, 2}, y)
}

func Test_Peer_Gather_root_unreachable(t *testing.T) {
	pl := freePeers(t, 2)
	p, err := NewFromConfig(&env.Config{Self: pl[1], Peers: pl, Group: "g", Timeout: time.Second})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	defer p.Close()

	t0 := time.Now()
	err = gather(p, 0, []byte{1}, nil, 200*time.Millisecond)
	assert.Equal(t, collective.Timeout, collective.KindOf(err), "%v", err)
	assert.Less(t, time.Since(t0), 2*time.Second)
}

func Test_Peer_Gather_other_group(t *testing.T) {
	ps := startPeers(t, 2, "g1", "g2")
	err := gather(ps[1], 0, []byte{1}, nil, time.Second)
	assert.Equal(t, collective.TransportError, collective.KindOf(err), "%v", err)
}

func Test_Peer_Channel_invalid(t *testing.T) {
	ps := startPeers(t, 1)
	assert.Equal(t, errInvalidPeerRank, ps[0].Channel(1).Send(collective.BuildSlot(collective.GatherSlotPrefix, 0), []byte{1}, time.Second))
	assert.Equal(t, 1, ps[0].Size())

	y := make([]byte, 1)
	require.NoError(t, gather(ps[0], 0, []byte{7}, y, 0))
	assert.Equal(t, byte(7), y[0])
}
