package env

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lsds/kungfu-gather/srcs/go/plan"
)

// Config is the bootstrap configuration of one peer.
type Config struct {
	Self  plan.PeerID   `yaml:"self"`
	Peers plan.PeerList `yaml:"peers" validate:"required,min=1,max=65536"`
	Group string        `yaml:"group" validate:"required,printascii,max=256"`
	// Timeout overrides the default timeout of collective calls if positive.
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`

	Single bool `yaml:"-"`
}

var validate = validator.New()

var errSelfNotInPeers = errors.New("self not in peers")

// Validate checks the field constraints and that Self is one of Peers.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if err := c.Peers.Validate(); err != nil {
		return err
	}
	if _, ok := c.Peers.Rank(c.Self); !ok {
		return fmt.Errorf("%w: %s", errSelfNotInPeers, c.Self)
	}
	return nil
}

// Rank is the position of Self in Peers, Validate must have succeeded.
func (c *Config) Rank() int {
	rank, _ := c.Peers.Rank(c.Self)
	return rank
}

func ParseConfigFromEnv() (*Config, error) {
	if filename, ok := os.LookupEnv(ConfigFileEnvKey); ok {
		return LoadFile(filename)
	}
	if _, ok := os.LookupEnv(SelfSpecEnvKey); !ok {
		return singleProcessEnv(), nil
	}
	self, err := getSelfFromEnv()
	if err != nil {
		return nil, err
	}
	peers, err := getInitPeersFromEnv()
	if err != nil {
		return nil, err
	}
	timeout, err := getTimeoutFromEnv()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Self:    *self,
		Peers:   peers,
		Group:   getGroupFromEnv(),
		Timeout: timeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SingleMachineEnv is the config of rank in a group of size peers on the loopback interface.
func SingleMachineEnv(rank, size int) (*Config, error) {
	cfgs, err := singleMachineGroup(size, DefaultGroup, plan.DefaultPortRange)
	if err != nil {
		return nil, err
	}
	if rank < 0 || rank >= size {
		return nil, fmt.Errorf("invalid rank %d of %d", rank, size)
	}
	return cfgs[rank], nil
}

// SingleMachineGroup returns the configs of all ranks of a new loopback group with a unique group id.
func SingleMachineGroup(size int, pr plan.PortRange) ([]*Config, error) {
	return singleMachineGroup(size, uuid.NewString(), pr)
}

func singleMachineGroup(size int, group string, pr plan.PortRange) ([]*Config, error) {
	pl, err := plan.GenLocalPeerList(plan.MustParseIPv4(`127.0.0.1`), size, pr)
	if err != nil {
		return nil, err
	}
	var cfgs []*Config
	for _, self := range pl {
		cfgs = append(cfgs, &Config{
			Self:  self,
			Peers: pl,
			Group: group,
		})
	}
	return cfgs, nil
}

func singleProcessEnv() *Config {
	pl, _ := plan.GenLocalPeerList(plan.MustParseIPv4(`127.0.0.1`), 1, plan.DefaultPortRange)
	return &Config{
		Self:   pl[0],
		Peers:  pl,
		Group:  uuid.NewString(),
		Single: true,
	}
}

func getSelfFromEnv() (*plan.PeerID, error) {
	config, ok := os.LookupEnv(SelfSpecEnvKey)
	if !ok {
		return nil, fmt.Errorf("%s not set", SelfSpecEnvKey)
	}
	return plan.ParsePeerID(config)
}

func getInitPeersFromEnv() (plan.PeerList, error) {
	val, ok := os.LookupEnv(PeerListEnvKey)
	if !ok {
		return nil, fmt.Errorf("%s not set", PeerListEnvKey)
	}
	return plan.ParsePeerList(val)
}

func getGroupFromEnv() string {
	if val := os.Getenv(GroupEnvKey); len(val) > 0 {
		return val
	}
	return DefaultGroup
}

func getTimeoutFromEnv() (time.Duration, error) {
	val := os.Getenv(TimeoutEnvKey)
	if len(val) == 0 {
		return 0, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", TimeoutEnvKey, err)
	}
	return d, nil
}
