// SPDX-License-Identifier: MIT

package sysuser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureDB(t *testing.T, passwd, group string) *DB {
	t.Helper()
	dir := t.TempDir()
	db := &DB{
		PasswdPath: filepath.Join(dir, "passwd"),
		GroupPath:  filepath.Join(dir, "group"),
	}
	require.NoError(t, os.WriteFile(db.PasswdPath, []byte(passwd), 0o644))
	require.NoError(t, os.WriteFile(db.GroupPath, []byte(group), 0o644))
	return db
}

const basePasswd = `root:x:0:0:root:/root:/bin/bash
daemon:x:1:1:daemon:/usr/sbin:/usr/sbin/nologin
`

const baseGroup = `root:x:0:
daemon:x:1:
users:x:100:
`

func TestLookupUser(t *testing.T) {
	db := fixtureDB(t, basePasswd, baseGroup)

	u, err := db.LookupUser("daemon")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, uint32(1), u.UID)
	assert.Equal(t, uint32(1), u.GID)
	assert.Equal(t, "/usr/sbin", u.Home)
	assert.Equal(t, "/usr/sbin/nologin", u.Shell)

	missing, err := db.LookupUser("litkeeper")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLookupGroupByGID(t *testing.T) {
	db := fixtureDB(t, basePasswd, baseGroup)

	g, err := db.LookupGroupByGID(100)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, "users", g.Name)

	missing, err := db.LookupGroupByGID(4242)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAddUserAndGroupRoundTrip(t *testing.T) {
	db := fixtureDB(t, basePasswd, baseGroup)

	require.NoError(t, db.AddGroup(Group{Name: "litkeeper", GID: 1000}))
	require.NoError(t, db.AddUser(User{Name: "litkeeper", UID: 1000, GID: 1000}))

	u, err := db.LookupUser("litkeeper")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, uint32(1000), u.UID)
	assert.Equal(t, "/usr/sbin/nologin", u.Shell)

	g, err := db.LookupGroup("litkeeper")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, uint32(1000), g.GID)

	// Existing entries are untouched.
	root, err := db.LookupUser("root")
	require.NoError(t, err)
	require.NotNil(t, root)
	assert.Equal(t, uint32(0), root.UID)
}

func TestEnsureUserCreatesUserAndGroup(t *testing.T) {
	db := fixtureDB(t, basePasswd, baseGroup)

	u, created, err := EnsureUser(db, "litkeeper", 1000, 1000)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint32(1000), u.UID)
	assert.Equal(t, uint32(1000), u.GID)

	g, err := db.LookupGroup("litkeeper")
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, uint32(1000), g.GID)
}

func TestEnsureUserReusesExistingGroupWithSameGID(t *testing.T) {
	db := fixtureDB(t, basePasswd, baseGroup)

	u, created, err := EnsureUser(db, "litkeeper", 1000, 100)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint32(100), u.GID)

	// No new group was appended; the "users" group with gid 100 served.
	g, err := db.LookupGroup("litkeeper")
	require.NoError(t, err)
	assert.Nil(t, g)
}

func TestEnsureUserIdempotent(t *testing.T) {
	db := fixtureDB(t, basePasswd, baseGroup)

	_, created, err := EnsureUser(db, "litkeeper", 1000, 1000)
	require.NoError(t, err)
	require.True(t, created)

	u, created, err := EnsureUser(db, "litkeeper", 1000, 1000)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, uint32(1000), u.UID)
}

func TestEnsureUserGroupNameClash(t *testing.T) {
	db := fixtureDB(t, basePasswd, baseGroup+"litkeeper:x:999:\n")

	_, _, err := EnsureUser(db, "litkeeper", 1000, 1000)
	assert.ErrorContains(t, err, "exists with gid 999")
}
