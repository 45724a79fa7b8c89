//go:build linux

package status

import "golang.org/x/sys/unix"

const ioctlGetTermios = unix.TCGETS
