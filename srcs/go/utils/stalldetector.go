package utils

import (
	"sync"
	"time"
)

// StallDetector reports an operation that is still running after each period.
type StallDetector struct {
	stopped chan struct{}
	wg      sync.WaitGroup
}

// InstallStallDetector starts reporting name through report until Stop is called.
// A recovery is reported on Stop if the operation stalled at least once.
func InstallStallDetector(name string, period time.Duration, report func(format string, v ...interface{})) *StallDetector {
	s := &StallDetector{stopped: make(chan struct{})}
	s.wg.Add(1)
	go s.watch(name, period, report)
	return s
}

func (s *StallDetector) watch(name string, period time.Duration, report func(string, ...interface{})) {
	defer s.wg.Done()
	t0 := time.Now()
	tk := time.NewTicker(period)
	defer tk.Stop()
	var stalls int
	for {
		select {
		case <-tk.C:
			stalls++
			report("%s stalled for %s", name, time.Since(t0))
		case <-s.stopped:
			if stalls > 0 {
				report("%s recovered after %s", name, time.Since(t0))
			}
			return
		}
	}
}

// Stop returns after the last report has been made.
func (s *StallDetector) Stop() {
	close(s.stopped)
	s.wg.Wait()
}
