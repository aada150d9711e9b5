package proc

import (
	"context"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/env"
)

// Envs are environment variables set for a process on top of the inherited ones.
type Envs map[string]string

// Merge returns the union of e and f, f wins on conflicts.
func Merge(e, f Envs) Envs {
	g := make(Envs, len(e)+len(f))
	maps.Copy(g, e)
	maps.Copy(g, f)
	return g
}

// Proc is a worker process to be started by a runner.
type Proc struct {
	Name string
	Prog string
	Args []string
	Envs Envs
}

// Cmd returns the command of p, it inherits the environment of the current process.
func (p Proc) Cmd(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, p.Prog, p.Args...)
	cmd.Env = updatedEnvFrom(p.Envs, os.Environ())
	return cmd
}

// PeerEnvs returns the variables that make env.ParseConfigFromEnv return cfg.
func PeerEnvs(cfg *env.Config) Envs {
	envs := Envs{
		env.SelfSpecEnvKey: cfg.Self.String(),
		env.PeerListEnvKey: cfg.Peers.String(),
		env.GroupEnvKey:    cfg.Group,
	}
	if cfg.Timeout > 0 {
		envs[env.TimeoutEnvKey] = cfg.Timeout.String()
	}
	return envs
}

// PeerProcs creates one process per config, all running prog with args.
// The per-peer variables override extra.
func PeerProcs(cfgs []*env.Config, prog string, args []string, extra Envs) []Proc {
	ps := make([]Proc, len(cfgs))
	for i, cfg := range cfgs {
		ps[i] = Proc{
			Name: fmt.Sprintf("%02d/%s", i, cfg.Self),
			Prog: prog,
			Args: args,
			Envs: Merge(extra, PeerEnvs(cfg)),
		}
	}
	return ps
}

func parseEnv(kvs []string) Envs {
	envs := make(Envs, len(kvs))
	for _, kv := range kvs {
		if k, v, ok := strings.Cut(kv, "="); ok {
			envs[k] = v
		}
	}
	return envs
}

func updatedEnvFrom(newValues Envs, oldEnvs []string) []string {
	envs := Merge(parseEnv(oldEnvs), newValues)
	kvs := make([]string, 0, len(envs))
	for _, k := range slices.Sorted(maps.Keys(envs)) {
		kvs = append(kvs, k+"="+envs[k])
	}
	return kvs
}
