package log

import (
	"bytes"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

type color struct {
	f uint8
	b uint8
}

var warnColor = func() interface{ S(string) string } {
	if fd := os.Stdout.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return color{f: 35, b: 1}
	}
	return noColor{}
}()

func (c color) S(text string) string {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "\x1b[%d;%dm", c.b, c.f)
	buf.WriteString(text)
	buf.WriteString("\x1b[m")
	return buf.String()
}

type noColor struct{}

func (noColor) S(text string) string { return text }
