package utils

import (
	"fmt"
	"os"
	"time"
)

func ExitErr(err error) {
	fmt.Fprintf(os.Stderr, "exit on error: %v\n", err)
	os.Exit(1)
}

func Measure(f func() error) (time.Duration, error) {
	t0 := time.Now()
	err := f()
	return time.Since(t0), err
}

// Rate is n per second.
func Rate(n int64, d time.Duration) float64 {
	return float64(n) / d.Seconds()
}

var binaryUnits = []struct {
	size int64
	name string
}{
	{1 << 30, "GiB"},
	{1 << 20, "MiB"},
	{1 << 10, "KiB"},
}

func ShowRate(r float64) string {
	for _, u := range binaryUnits {
		if r > float64(u.size) {
			return fmt.Sprintf("%.2f %s/s", r/float64(u.size), u.name)
		}
	}
	return fmt.Sprintf("%.2f B/s", r)
}

// ShowSize rounds n down to the largest unit it fills.
func ShowSize(n int64) string {
	for _, u := range binaryUnits {
		if n >= u.size {
			return fmt.Sprintf("%d%s", n/u.size, u.name)
		}
	}
	return fmt.Sprintf("%dB", n)
}

func Pluralize(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
