package iostream

import (
	"io"
	"os"
	"path/filepath"
	"sync"
)

type lazyFile struct {
	name string
	once sync.Once
	f    *os.File
	err  error
}

// NewLazyFile returns a writer that creates filename, and its directory, on the first write.
// Processes that print nothing leave no empty log behind.
func NewLazyFile(filename string) io.WriteCloser {
	return &lazyFile{name: filename}
}

func (l *lazyFile) open() {
	if l.err = os.MkdirAll(filepath.Dir(l.name), 0o755); l.err != nil {
		return
	}
	l.f, l.err = os.Create(l.name)
}

func (l *lazyFile) Write(bs []byte) (int, error) {
	l.once.Do(l.open)
	if l.err != nil {
		return 0, l.err
	}
	return l.f.Write(bs)
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
