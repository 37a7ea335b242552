// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"os"
	"path/filepath"
)

// Pinger is satisfied by stores exposing a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker probes a store by pinging it.
type PingChecker struct {
	name   string
	pinger Pinger
}

// NewPingChecker wraps a store ping as a readiness check.
func NewPingChecker(name string, p Pinger) *PingChecker {
	return &PingChecker{name: name, pinger: p}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	if err := c.pinger.Ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy, Message: "reachable"}
}

// DirWritableChecker verifies the data directory exists and accepts writes.
// The archive pipeline cannot finish a job without it.
type DirWritableChecker struct {
	name string
	dir  string
}

// NewDirWritableChecker creates a checker for a writable directory.
func NewDirWritableChecker(name, dir string) *DirWritableChecker {
	return &DirWritableChecker{name: name, dir: dir}
}

func (c *DirWritableChecker) Name() string { return c.name }

func (c *DirWritableChecker) Check(ctx context.Context) CheckResult {
	info, err := os.Stat(c.dir)
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	if !info.IsDir() {
		return CheckResult{Status: StatusUnhealthy, Error: "not a directory", Message: c.dir}
	}

	probe, err := os.CreateTemp(c.dir, ".healthcheck-*")
	if err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "directory not writable"}
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)

	return CheckResult{Status: StatusHealthy, Message: filepath.Clean(c.dir) + " writable"}
}
