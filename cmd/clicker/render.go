package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// formatDelta renders a delta with its sign, colored when colorize is set.
func formatDelta(delta int, colorize bool) string {
	s := fmt.Sprintf("%+d", delta)
	if !colorize {
		return s
	}
	if delta > 0 {
		return ansiGreen + s + ansiReset
	}
	return ansiRed + s + ansiReset
}

func formatSeconds(ts float64) string {
	return fmt.Sprintf("%.2fs", ts)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
