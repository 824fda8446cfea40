//go:build !darwin
// +build !darwin

package logger

import "os"

// getPlatformTerminalSize has no ioctl-based probe wired up outside
// darwin; source lines print unwrapped on these platforms.
func getPlatformTerminalSize(*os.File) TerminalSize {
	return TerminalSize{}
}
