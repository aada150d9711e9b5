package iostream

import (
	"bufio"
	"fmt"
	"io"
	"sync"
)

// Tee copies r to every writer of ws line by line, a missing final newline is added.
// A failing writer does not stop the copy to the others.
func Tee(r io.Reader, ws ...io.Writer) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if line[len(line)-1] != '\n' {
				line = append(line, '\n')
			}
			for _, w := range ws {
				w.Write(line)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// PrefixWriter prepends Prefix to every write, writes are expected to be whole lines.
type PrefixWriter struct {
	Prefix string
	W      io.Writer
}

func (x PrefixWriter) Write(bs []byte) (int, error) {
	if _, err := fmt.Fprintf(x.W, "[%s] %s", x.Prefix, bs); err != nil {
		return 0, err
	}
	return len(bs), nil
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewSyncWriter serializes the writes to w.
func NewSyncWriter(w io.Writer) io.Writer {
	return &syncWriter{w: w}
}

func (s *syncWriter) Write(bs []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(bs)
}
