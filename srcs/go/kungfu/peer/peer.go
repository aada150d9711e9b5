package peer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/collective"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/env"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/execution"
	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/lsds/kungfu-gather/srcs/go/monitor"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/connection"
	"github.com/lsds/kungfu-gather/srcs/go/rchannel/server"
)

// Peer is one rank of a group whose members talk over TCP, it implements collective.Context.
type Peer struct {
	sync.Mutex

	// immutable
	self    plan.PeerID
	peers   plan.PeerList
	rank    int
	group   string
	timeout time.Duration
	single  bool
	slots   *collective.SlotAllocator
	router  *router
	server  *server.Server

	started          bool
	monitoringServer *monitor.Server
}

var _ collective.Context = (*Peer)(nil)

func New() (*Peer, error) {
	config, err := env.ParseConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewFromConfig(config)
}

func NewFromConfig(cfg *env.Config) (*Peer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.CollectiveTimeout
	}
	token := connection.GroupToken(cfg.Group)
	router := NewRouter(cfg.Self, token)
	return &Peer{
		self:    cfg.Self,
		peers:   cfg.Peers,
		rank:    cfg.Rank(),
		group:   cfg.Group,
		timeout: timeout,
		single:  cfg.Single,
		slots:   collective.NewSlotAllocator(0),
		router:  router,
		server:  server.New(cfg.Self, router, token),
	}, nil
}

func (p *Peer) Start() error {
	p.Lock()
	defer p.Unlock()
	if p.started {
		return nil
	}
	if !p.single {
		if err := p.server.Start(); err != nil {
			return err
		}
		if config.EnableMonitoring {
			monitoringPort := int(p.self.Port) + config.MonitoringPortOffset
			p.monitoringServer = monitor.StartServer(monitoringPort)
			monitorAddr := plan.NetAddr{
				IPv4: p.self.IPv4,
				Port: uint16(monitoringPort),
			}
			log.Infof("KungFu peer %s started, monitoring endpoint http://%s/metrics", p.self, monitorAddr)
		}
	}
	p.started = true
	log.Debugf("peer %s started as rank %d of %d in group %s", p.self, p.rank, len(p.peers), p.group)
	return nil
}

func (p *Peer) Close() error {
	p.Lock()
	defer p.Unlock()
	if !p.started {
		return nil
	}
	p.started = false
	var err error
	if !p.single {
		if p.monitoringServer != nil {
			err = p.monitoringServer.Stop()
			p.monitoringServer = nil
		}
		p.server.Close()
	}
	p.router.Close()
	return err
}

var errWaitPeersTimeout = errors.New("not all peers are reachable")

// WaitPeers blocks until every other peer answers a ping or ctx is done.
func (p *Peer) WaitPeers(ctx context.Context) error {
	var wait execution.RankFunc = func(rank int) error {
		if rank == p.rank {
			return nil
		}
		n, err := p.router.Wait(ctx, p.peers[rank])
		if err != nil {
			log.Warnf("%s unreachable after %d trials", p.peers[rank], n)
			return errWaitPeersTimeout
		}
		return nil
	}
	ranks := make([]int, len(p.peers))
	for i := range ranks {
		ranks[i] = i
	}
	return wait.Par(ranks, 0)
}

func (p *Peer) Self() plan.PeerID { return p.self }

func (p *Peer) Peers() plan.PeerList { return p.peers }

func (p *Peer) Rank() int { return p.rank }

func (p *Peer) Size() int { return len(p.peers) }

func (p *Peer) Slots() *collective.SlotAllocator { return p.slots }

func (p *Peer) Timeout() time.Duration { return p.timeout }

func (p *Peer) Channel(peer int) collective.Channel {
	if peer < 0 || peer >= len(p.peers) {
		return invalidChannel{peer: peer}
	}
	return &channel{r: p.router, remote: p.peers[peer]}
}
