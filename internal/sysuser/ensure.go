// SPDX-License-Identifier: MIT

package sysuser

import "fmt"

// EnsureUser provisions the service account on first run. When a user with
// the given name already exists it is returned unchanged and created is
// false. Otherwise a group with the requested GID is reused if any group
// already carries it; a new group named after the user is created if not,
// and the user is created bound to that group.
func EnsureUser(db *DB, name string, uid, gid uint32) (user *User, created bool, err error) {
	existing, err := db.LookupUser(name)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	group, err := db.LookupGroupByGID(gid)
	if err != nil {
		return nil, false, err
	}
	if group == nil {
		group = &Group{Name: name, GID: gid}
		if clash, err := db.LookupGroup(name); err != nil {
			return nil, false, err
		} else if clash != nil {
			return nil, false, fmt.Errorf("group %q exists with gid %d, want %d", name, clash.GID, gid)
		}
		if err := db.AddGroup(*group); err != nil {
			return nil, false, fmt.Errorf("create group: %w", err)
		}
	}

	u := User{Name: name, UID: uid, GID: group.GID}
	if err := db.AddUser(u); err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return &u, true, nil
}
