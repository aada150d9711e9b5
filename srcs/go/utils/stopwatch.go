package utils

import "time"

// StopWatch measures the time since its creation, typically with
// defer NewStopWatch().Stop(report).
type StopWatch struct {
	t0 time.Time
}

func NewStopWatch() *StopWatch {
	return &StopWatch{t0: time.Now()}
}

func (w *StopWatch) Stop(report func(time.Duration)) {
	report(time.Since(w.t0))
}
