// SPDX-License-Identifier: MIT

// Package sysuser reads and amends the container's passwd and group
// databases. It implements the minimal subset the entrypoint needs: lookups
// by name and numeric ID, and appending new entries.
package sysuser

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// User is one passwd entry.
type User struct {
	Name  string
	UID   uint32
	GID   uint32
	Home  string
	Shell string
}

// Group is one group entry.
type Group struct {
	Name string
	GID  uint32
}

// DB addresses the passwd and group files. Paths are injectable so tests can
// run against fixtures instead of /etc.
type DB struct {
	PasswdPath string
	GroupPath  string
}

// SystemDB returns the DB backed by /etc/passwd and /etc/group.
func SystemDB() *DB {
	return &DB{PasswdPath: "/etc/passwd", GroupPath: "/etc/group"}
}

// LookupUser finds a user by name. Returns (nil, nil) when absent.
func (db *DB) LookupUser(name string) (*User, error) {
	var found *User
	err := scanFile(db.PasswdPath, func(fields []string) bool {
		if len(fields) < 4 || fields[0] != name {
			return true
		}
		uid, err1 := parseID(fields[2])
		gid, err2 := parseID(fields[3])
		if err1 != nil || err2 != nil {
			return true
		}
		u := User{Name: fields[0], UID: uid, GID: gid}
		if len(fields) > 5 {
			u.Home = fields[5]
		}
		if len(fields) > 6 {
			u.Shell = fields[6]
		}
		found = &u
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("read passwd: %w", err)
	}
	return found, nil
}

// LookupGroup finds a group by name. Returns (nil, nil) when absent.
func (db *DB) LookupGroup(name string) (*Group, error) {
	return db.findGroup(func(g Group) bool { return g.Name == name })
}

// LookupGroupByGID finds a group by numeric ID. Returns (nil, nil) when no
// group carries it.
func (db *DB) LookupGroupByGID(gid uint32) (*Group, error) {
	return db.findGroup(func(g Group) bool { return g.GID == gid })
}

func (db *DB) findGroup(match func(Group) bool) (*Group, error) {
	var found *Group
	err := scanFile(db.GroupPath, func(fields []string) bool {
		if len(fields) < 3 {
			return true
		}
		gid, err := parseID(fields[2])
		if err != nil {
			return true
		}
		g := Group{Name: fields[0], GID: gid}
		if match(g) {
			found = &g
			return false
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("read group: %w", err)
	}
	return found, nil
}

// AddGroup appends a group entry.
func (db *DB) AddGroup(g Group) error {
	line := fmt.Sprintf("%s:x:%d:\n", g.Name, g.GID)
	return appendLine(db.GroupPath, line)
}

// AddUser appends a passwd entry. Home defaults to "/" and shell to
// /usr/sbin/nologin, matching what a system-account useradd produces.
func (db *DB) AddUser(u User) error {
	home := u.Home
	if home == "" {
		home = "/"
	}
	shell := u.Shell
	if shell == "" {
		shell = "/usr/sbin/nologin"
	}
	line := fmt.Sprintf("%s:x:%d:%d::%s:%s\n", u.Name, u.UID, u.GID, home, shell)
	return appendLine(db.PasswdPath, line)
}

func scanFile(path string, visit func(fields []string) bool) error {
	f, err := os.Open(path) // #nosec G304 -- paths come from fixed config
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !visit(strings.Split(line, ":")) {
			return nil
		}
	}
	return scanner.Err()
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644) // #nosec G304
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(line); err != nil {
		return err
	}
	return f.Sync()
}

func parseID(s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
