// Package collective implements collective operations over the point-to-point channels of a Context.
package collective

import (
	"context"
	"fmt"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-gather/srcs/go/kungfu/execution"
	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/lsds/kungfu-gather/srcs/go/monitor"
	"github.com/lsds/kungfu-gather/srcs/go/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("kungfu/collective")

const stallReportPeriod = 3 * time.Second

// Gather concatenates the inputs of all ranks, in rank order, into the output of the root.
//
// Every rank sends its input to the root on a slot dedicated to this call, the root places the
// segment of rank j at offset j * len(input). The root returns once all segments are placed,
// other ranks return once their input is committed to the transport.
// On failure the output of the root may be partially written.
func Gather(opts *GatherOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	c := opts.ctx
	g := gatherCall{
		rank:    c.Rank(),
		size:    c.Size(),
		root:    opts.root,
		input:   opts.input,
		output:  opts.output,
		timeout: opts.effectiveTimeout(),
		slot:    opts.slot(),
		ctx:     c,
	}
	return g.run()
}

type gatherCall struct {
	ctx     Context
	rank    int
	size    int
	root    int
	input   []byte
	output  []byte
	timeout time.Duration
	slot    Slot
}

func (g *gatherCall) role() string {
	if g.rank == g.root {
		return "root"
	}
	return "leaf"
}

func (g *gatherCall) run() error {
	_, span := tracer.Start(context.Background(), "collective.Gather", trace.WithAttributes(
		attribute.Int("kungfu.rank", g.rank),
		attribute.Int("kungfu.size", g.size),
		attribute.Int("kungfu.root", g.root),
		attribute.String("kungfu.slot", g.slot.String()),
		attribute.Int("kungfu.input_bytes", len(g.input)),
	))
	defer span.End()
	if config.EnableStallDetection {
		name := fmt.Sprintf("gather(%s, rank=%d, root=%d)", g.slot, g.rank, g.root)
		defer utils.InstallStallDetector(name, stallReportPeriod, log.Warnf).Stop()
	}
	log.Debugf("%s: rank %d/%d sends %d bytes to root %d", g.slot, g.rank, g.size, len(g.input), g.root)

	t0 := time.Now()
	var err error
	if g.rank == g.root {
		err = g.recvAll()
	} else {
		err = g.send()
	}
	kind := KindOf(err)
	monitor.GetMonitor().CollectiveDone(opGather, g.role(), kind.String(), time.Since(t0))
	if err != nil {
		if kind == Timeout {
			log.Warnf("%v", err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, kind.String())
		return err
	}
	return nil
}

func (g *gatherCall) send() error {
	if err := g.ctx.Channel(g.root).Send(g.slot, g.input, g.timeout); err != nil {
		return g.wrap(g.root, err)
	}
	return nil
}

func (g *gatherCall) recvAll() error {
	n := len(g.input)
	copy(g.segment(g.rank, n), g.input)
	var recv execution.RankFunc = func(j int) error {
		if err := g.ctx.Channel(j).RecvInto(g.slot, g.segment(j, n), g.timeout); err != nil {
			return g.wrap(j, err)
		}
		return nil
	}
	return recv.Par(g.others(), config.GatherFanIn)
}

// segment is the output range owned by sender j.
func (g *gatherCall) segment(j, n int) []byte {
	return g.output[j*n : (j+1)*n]
}

func (g *gatherCall) others() []int {
	ranks := make([]int, 0, g.size-1)
	for j := 0; j < g.size; j++ {
		if j != g.rank {
			ranks = append(ranks, j)
		}
	}
	return ranks
}

func (g *gatherCall) wrap(peer int, err error) *Error {
	e := &Error{
		Kind: KindOf(err),
		Op:   opGather,
		Rank: g.rank,
		Peer: peer,
		Slot: g.slot,
		Err:  err,
	}
	if e.Kind == Timeout {
		e.After = g.timeout
	}
	return e
}
