// SPDX-License-Identifier: MIT

//go:build linux

package entrypoint

import (
	"os"
	"syscall"
)

// SystemSyscalls returns the real process-level operations.
func SystemSyscalls() Syscalls {
	return Syscalls{
		Umask:     syscall.Umask,
		Setgroups: syscall.Setgroups,
		Setresgid: syscall.Setresgid,
		Setresuid: syscall.Setresuid,
		Exec:      syscall.Exec,
		Lchown:    os.Lchown,
	}
}
