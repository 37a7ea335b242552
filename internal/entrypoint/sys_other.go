// SPDX-License-Identifier: MIT

//go:build !linux

package entrypoint

import "errors"

var errUnsupported = errors.New("entrypoint: privilege drop requires linux")

// SystemSyscalls returns stubs that fail: the entrypoint only runs inside
// the linux container image.
func SystemSyscalls() Syscalls {
	return Syscalls{
		Umask:     func(mask int) int { return 0 },
		Setgroups: func([]int) error { return errUnsupported },
		Setresgid: func(int, int, int) error { return errUnsupported },
		Setresuid: func(int, int, int) error { return errUnsupported },
		Exec:      func(string, []string, []string) error { return errUnsupported },
		Lchown:    func(string, int, int) error { return errUnsupported },
	}
}
