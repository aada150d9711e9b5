package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lsds/kungfu-gather/srcs/go/kungfu/config"
)

type Level int32

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levels = []struct {
	name string
	tag  string
}{
	Debug: {`DEBUG`, "[D]"},
	Info:  {`INFO`, "[I]"},
	Warn:  {`WARN`, "[W]"},
	Error: {`ERROR`, warnColor.S("[E]")},
}

func (l Level) String() string {
	if l < Debug || l > Error {
		return fmt.Sprintf("Level(%d)", int32(l))
	}
	return levels[l].name
}

// ParseLevel accepts DEBUG, INFO, WARN and ERROR in any case.
func ParseLevel(s string) (Level, error) {
	for l, v := range levels {
		if strings.EqualFold(v.name, s) {
			return Level(l), nil
		}
	}
	return Info, fmt.Errorf("invalid log level: %q", s)
}

var std = New()

const (
	ShowTimestamp = 1 << iota
)

type Logger struct {
	sync.Mutex
	w      io.Writer
	buf    []byte
	t0     time.Time
	level  Level
	flags  uint32
	prefix string
}

func New() *Logger {
	level, err := ParseLevel(config.LogLevel)
	if err != nil {
		level = Info
	}
	l := &Logger{
		w:     os.Stdout,
		t0:    time.Now(),
		level: level,
	}
	return l
}

// fmtDuration prints d as days and a clock with millisecond precision.
func fmtDuration(d time.Duration) string {
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hh, mm, ss := int(d/time.Hour), int(d/time.Minute)%60, int(d/time.Second)%60
	ms := float64(d%time.Second) / float64(time.Millisecond)
	return fmt.Sprintf("%dd %02d:%02d:%02d %6.2fms", days, hh, mm, ss, ms)
}

func (l *Logger) output(tag, format string, v ...interface{}) {
	l.Lock()
	defer l.Unlock()
	d := time.Since(l.t0)
	l.buf = l.buf[:0]
	l.buf = append(l.buf, tag...)
	if l.flags&ShowTimestamp != 0 {
		l.buf = append(l.buf, ' ', '[')
		l.buf = append(l.buf, fmtDuration(d)...)
		l.buf = append(l.buf, ']', ' ')
	} else {
		l.buf = append(l.buf, ' ')
	}
	if len(l.prefix) > 0 {
		l.buf = append(l.buf, l.prefix...)
		l.buf = append(l.buf, ' ')
	}
	s := fmt.Sprintf(format, v...)
	l.buf = append(l.buf, s...)
	if len(s) == 0 || s[len(s)-1] != '\n' {
		l.buf = append(l.buf, '\n')
	}
	l.w.Write(l.buf)
}

func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if level >= l.getLevel() {
		l.output(levels[level].tag, format, v...)
	}
}

func (l *Logger) getLevel() Level {
	l.Lock()
	defer l.Unlock()
	return l.level
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.logf(Debug, format, v...) }

func (l *Logger) Infof(format string, v ...interface{}) { l.logf(Info, format, v...) }

func (l *Logger) Warnf(format string, v ...interface{}) { l.logf(Warn, format, v...) }

func (l *Logger) Errorf(format string, v ...interface{}) { l.logf(Error, format, v...) }

// Exitf logs regardless of the level and exits with status 1.
func (l *Logger) Exitf(format string, v ...interface{}) {
	l.output(warnColor.S("[F]"), format, v...)
	os.Exit(1)
}

func (l *Logger) SetOutput(w io.Writer) {
	l.Lock()
	defer l.Unlock()
	l.w = w
}

func (l *Logger) SetLevel(level Level) {
	l.Lock()
	defer l.Unlock()
	l.level = level
}

// SetPrefix sets a tag printed after the level marker, e.g. the rank of the peer.
func (l *Logger) SetPrefix(prefix string) {
	l.Lock()
	defer l.Unlock()
	l.prefix = prefix
}

func (l *Logger) SetFlags(fs ...uint32) {
	var flags uint32
	for _, f := range fs {
		flags |= f
	}
	l.Lock()
	defer l.Unlock()
	l.flags = flags
}

var (
	Debugf    = std.Debugf
	Infof     = std.Infof
	Warnf     = std.Warnf
	Errorf    = std.Errorf
	Exitf     = std.Exitf
	SetFlags  = std.SetFlags
	SetLevel  = std.SetLevel
	SetOutput = std.SetOutput
	SetPrefix = std.SetPrefix
)
