//go:build !linux && !darwin

package status

// IsTerminal always reports false where termios is unavailable.
func IsTerminal(fd int) bool {
	return false
}
