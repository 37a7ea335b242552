// SPDX-License-Identifier: MIT

// Command entrypoint is the container init process. It provisions the
// service account from PUID/PGID, fixes data directory ownership on first
// run, applies UMASK and execs its arguments as the unprivileged user.
//
// Usage: entrypoint <command> [args...]
package main

import (
	"os"

	"github.com/litkeeper/litkeeper/internal/config"
	"github.com/litkeeper/litkeeper/internal/entrypoint"
	lklog "github.com/litkeeper/litkeeper/internal/log"
)

func main() {
	lklog.Configure(lklog.Config{
		Level:   config.ParseString("LITKEEPER_LOG_LEVEL", "info"),
		Service: "litkeeper-entrypoint",
	})
	logger := lklog.WithComponent("entrypoint")

	cfg := entrypoint.Config{
		Username: "litkeeper",
		UID:      uint32(config.ParseInt("PUID", 1000)),
		GID:      uint32(config.ParseInt("PGID", 1000)),
		Umask:    config.ParseOctal("UMASK", 0o022),
		DataDir:  config.ParseString("LITKEEPER_DATA", "/app/data"),
		Sys:      entrypoint.SystemSyscalls(),
	}

	// Run only returns on failure; success ends in exec.
	if err := entrypoint.Run(cfg, os.Args[1:]); err != nil {
		logger.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}
}
