package collective

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

// Kind classifies the outcome of a collective call.
type Kind int

const (
	Success Kind = iota
	UsageError
	Timeout
	TransportError
)

var kindNames = map[Kind]string{
	Success:        "success",
	UsageError:     "usage error",
	Timeout:        "timeout",
	TransportError: "transport error",
}

func (k Kind) String() string {
	return kindNames[k]
}

// ErrTimedOut can be wrapped by Channel implementations to report an expired wait.
var ErrTimedOut = errors.New("timed out")

// Error is the failure returned by collective operations.
type Error struct {
	Kind Kind
	Op   string
	Rank int
	Peer int // -1 if the failure is not related to a peer
	Slot Slot
	// After is the bound that expired, set for timeouts.
	After time.Duration
	Err   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case UsageError:
		return fmt.Sprintf("%s: invalid options on rank %d: %v", e.Op, e.Rank, e.Err)
	case Timeout:
		return fmt.Sprintf("%s: timed out after %s waiting for rank %d on slot %s (rank %d)", e.Op, e.After, e.Peer, e.Slot, e.Rank)
	default:
		return fmt.Sprintf("%s: %s with rank %d on slot %s (rank %d): %v", e.Op, e.Kind, e.Peer, e.Slot, e.Rank, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns Success for nil and the kind of a collective failure otherwise.
// Errors not produced by this package are classified like channel errors.
func KindOf(err error) Kind {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return classify(err)
}

func IsTimeout(err error) bool {
	return KindOf(err) == Timeout
}

func classify(err error) Kind {
	if errors.Is(err, ErrTimedOut) || errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Timeout
	}
	return TransportError
}

func usageError(op string, rank int, format string, v ...interface{}) *Error {
	return &Error{
		Kind: UsageError,
		Op:   op,
		Rank: rank,
		Peer: -1,
		Err:  fmt.Errorf(format, v...),
	}
}
