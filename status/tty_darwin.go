//go:build darwin

package status

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TIOCGETA
