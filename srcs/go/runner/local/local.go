package local

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lsds/kungfu-gather/srcs/go/iostream"
	"github.com/lsds/kungfu-gather/srcs/go/log"
	"github.com/lsds/kungfu-gather/srcs/go/proc"
	"github.com/lsds/kungfu-gather/srcs/go/utils"
)

type Runner struct {
	Name       string
	LogDir     string
	VerboseLog bool
	Out        io.Writer
}

// Run runs cmd to completion, its output goes to Out if VerboseLog and to files under LogDir if set.
func (r Runner) Run(cmd *exec.Cmd) error {
	var wg sync.WaitGroup
	var files []io.Closer
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, name := range []string{"stdout", "stderr"} {
		var pipe io.Reader
		var err error
		if name == "stdout" {
			pipe, err = cmd.StdoutPipe()
		} else {
			pipe, err = cmd.StderrPipe()
		}
		if err != nil {
			return err
		}
		var ws []io.Writer
		if r.VerboseLog && r.Out != nil {
			ws = append(ws, iostream.PrefixWriter{Prefix: r.Name + "::" + name, W: r.Out})
		}
		if len(r.LogDir) > 0 {
			f := iostream.NewLazyFile(filepath.Join(r.LogDir, r.logPrefix()+"-"+name+".log"))
			files = append(files, f)
			ws = append(ws, f)
		}
		wg.Add(1)
		go func(pipe io.Reader, ws []io.Writer) {
			defer wg.Done()
			iostream.Tee(pipe, ws...)
		}(pipe, ws)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	wg.Wait()
	return cmd.Wait()
}

func (r Runner) logPrefix() string {
	return strings.NewReplacer("/", "-", ":", "-").Replace(r.Name)
}

// LocalRunAll runs all ps concurrently, the first failure kills the others.
func LocalRunAll(ctx context.Context, ps []proc.Proc, logDir string, verboseLog bool, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if out != nil {
		out = iostream.NewSyncWriter(out)
	}
	var wg sync.WaitGroup
	errs := make([]error, len(ps))
	for i, p := range ps {
		wg.Add(1)
		go func(i int, p proc.Proc) {
			defer wg.Done()
			r := Runner{
				Name:       p.Name,
				LogDir:     logDir,
				VerboseLog: verboseLog,
				Out:        out,
			}
			if err := r.Run(p.Cmd(ctx)); err != nil {
				log.Errorf("#%s exited with error: %v", p.Name, err)
				errs[i] = fmt.Errorf("#%s: %w", p.Name, err)
				cancel()
				return
			}
			log.Infof("#%s finished successfully", p.Name)
		}(i, p)
	}
	wg.Wait()
	return utils.MergeErrors(errs, utils.Pluralize(len(ps), "peer", "peers"))
}
