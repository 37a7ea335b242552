// SPDX-License-Identifier: MIT

// Package entrypoint implements the container startup sequence: provision
// the service account from PUID/PGID, fix data directory ownership on first
// run, apply the umask, drop privileges and exec the workload.
package entrypoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/litkeeper/litkeeper/internal/log"
	"github.com/litkeeper/litkeeper/internal/sysuser"
)

// Config drives one entrypoint run.
type Config struct {
	// Username of the service account, "litkeeper" in the shipped image.
	Username string
	UID      uint32
	GID      uint32
	// Umask applied before the exec, e.g. 0o022.
	Umask uint32
	// DataDir is chowned to the service account when it is first created.
	DataDir string

	DB  *sysuser.DB
	Sys Syscalls
}

// Syscalls abstracts the process-level operations so tests can observe the
// sequence without actually switching identity or replacing the process.
type Syscalls struct {
	Umask     func(mask int) int
	Setgroups func(gids []int) error
	Setresgid func(rgid, egid, sgid int) error
	Setresuid func(ruid, euid, suid int) error
	Exec      func(argv0 string, argv []string, envv []string) error
	Lchown    func(path string, uid, gid int) error
}

// Run executes the startup sequence and, on success, never returns: the
// final step replaces the process image with argv.
func Run(cfg Config, argv []string) error {
	if len(argv) == 0 {
		return errors.New("entrypoint: no command to exec")
	}
	if cfg.DB == nil {
		cfg.DB = sysuser.SystemDB()
	}

	logger := log.WithComponent("entrypoint")
	logger.Info().
		Uint32("puid", cfg.UID).
		Uint32("pgid", cfg.GID).
		Str("umask", fmt.Sprintf("%03o", cfg.Umask)).
		Msg("starting")

	user, created, err := sysuser.EnsureUser(cfg.DB, cfg.Username, cfg.UID, cfg.GID)
	if err != nil {
		return fmt.Errorf("provision user: %w", err)
	}

	// Ownership is only synced when the account was just created. Later
	// starts skip the recursive chown and go straight to the exec.
	if created {
		logger.Info().
			Str("user", user.Name).
			Str(log.FieldDataDir, cfg.DataDir).
			Msg("first run, fixing data directory ownership")
		if err := chownTree(cfg.DataDir, int(user.UID), int(user.GID), cfg.Sys.Lchown); err != nil {
			return fmt.Errorf("chown data directory: %w", err)
		}
	}

	cfg.Sys.Umask(int(cfg.Umask))

	if err := dropPrivileges(cfg.Sys, int(user.UID), int(user.GID)); err != nil {
		return fmt.Errorf("drop privileges: %w", err)
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("resolve command %q: %w", argv[0], err)
	}

	logger.Info().Str("command", path).Msg("handing off to workload")
	if err := cfg.Sys.Exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec %q: %w", path, err)
	}
	return nil
}

// dropPrivileges switches to the target identity. Group first: once the UID
// is dropped the process may no longer change its groups.
func dropPrivileges(sys Syscalls, uid, gid int) error {
	if err := sys.Setgroups([]int{gid}); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := sys.Setresgid(gid, gid, gid); err != nil {
		return fmt.Errorf("setresgid: %w", err)
	}
	if err := sys.Setresuid(uid, uid, uid); err != nil {
		return fmt.Errorf("setresuid: %w", err)
	}
	return nil
}

// chownTree changes ownership of root and everything below it. Symlinks are
// changed themselves, not followed.
func chownTree(root string, uid, gid int, lchown func(string, int, int) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		return lchown(path, uid, gid)
	})
}
