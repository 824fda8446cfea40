//go:build darwin
// +build darwin

package logger

import (
	"os"

	"golang.org/x/sys/unix"
)

// getPlatformTerminalSize probes stderr with the same ioctls a shell
// uses to size its own prompt: TIOCGETA confirms the fd is actually a
// terminal, TIOCGWINSZ reads its current column count.
func getPlatformTerminalSize(file *os.File) TerminalSize {
	fd := int(file.Fd())
	if _, err := unix.IoctlGetTermios(fd, unix.TIOCGETA); err != nil {
		return TerminalSize{}
	}
	size := TerminalSize{IsTTY: true}
	if w, err := unix.IoctlGetWinsize(fd, unix.TIOCGWINSZ); err == nil {
		size.Width = int(w.Col)
	}
	return size
}
