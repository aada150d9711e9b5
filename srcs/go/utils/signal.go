package utils

import (
	"os"
	"os/signal"
	"syscall"
)

// Trap calls cancel once on the first SIGINT or SIGTERM, until the returned stop is called.
func Trap(cancel func(os.Signal)) (stop func()) {
	c := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(c)
		select {
		case sig := <-c:
			cancel(sig)
		case <-done:
		}
	}()
	return func() { close(done) }
}
