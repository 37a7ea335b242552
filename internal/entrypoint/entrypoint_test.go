// SPDX-License-Identifier: MIT

package entrypoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litkeeper/litkeeper/internal/sysuser"
)

type sysRecorder struct {
	umask     int
	setgroups [][]int
	resgid    []int
	resuid    []int
	execArgv0 string
	execArgv  []string
	chowned   map[string][2]int
	calls     []string
}

func newSysRecorder() *sysRecorder {
	r := &sysRecorder{umask: -1, chowned: make(map[string][2]int)}
	return r
}

func (r *sysRecorder) syscalls() Syscalls {
	return Syscalls{
		Umask: func(mask int) int {
			r.calls = append(r.calls, "umask")
			r.umask = mask
			return 0o022
		},
		Setgroups: func(gids []int) error {
			r.calls = append(r.calls, "setgroups")
			r.setgroups = append(r.setgroups, gids)
			return nil
		},
		Setresgid: func(rgid, egid, sgid int) error {
			r.calls = append(r.calls, "setresgid")
			r.resgid = []int{rgid, egid, sgid}
			return nil
		},
		Setresuid: func(ruid, euid, suid int) error {
			r.calls = append(r.calls, "setresuid")
			r.resuid = []int{ruid, euid, suid}
			return nil
		},
		Exec: func(argv0 string, argv []string, envv []string) error {
			r.calls = append(r.calls, "exec")
			r.execArgv0 = argv0
			r.execArgv = argv
			return nil
		},
		Lchown: func(path string, uid, gid int) error {
			r.calls = append(r.calls, "lchown")
			r.chowned[path] = [2]int{uid, gid}
			return nil
		},
	}
}

func testConfig(t *testing.T, sys Syscalls) Config {
	t.Helper()
	dir := t.TempDir()
	db := &sysuser.DB{
		PasswdPath: filepath.Join(dir, "passwd"),
		GroupPath:  filepath.Join(dir, "group"),
	}
	require.NoError(t, os.WriteFile(db.PasswdPath, []byte("root:x:0:0:root:/root:/bin/bash\n"), 0o644))
	require.NoError(t, os.WriteFile(db.GroupPath, []byte("root:x:0:\nusers:x:100:\n"), 0o644))

	dataDir := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(filepath.Join(dataDir, "epubs"), 0o775))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "epubs", "a.epub"), []byte("x"), 0o664))

	return Config{
		Username: "litkeeper",
		UID:      1000,
		GID:      1000,
		Umask:    0o022,
		DataDir:  dataDir,
		DB:       db,
		Sys:      sys,
	}
}

func TestRunFirstStartProvisionsAndExecs(t *testing.T) {
	rec := newSysRecorder()
	cfg := testConfig(t, rec.syscalls())

	require.NoError(t, Run(cfg, []string{"/bin/true", "arg1"}))

	// User and group exist with the requested IDs.
	u, err := cfg.DB.LookupUser("litkeeper")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, uint32(1000), u.UID)
	assert.Equal(t, uint32(1000), u.GID)

	g, err := cfg.DB.LookupGroup("litkeeper")
	require.NoError(t, err)
	require.NotNil(t, g)

	// The whole data tree was chowned to the new account.
	assert.Equal(t, [2]int{1000, 1000}, rec.chowned[cfg.DataDir])
	assert.Equal(t, [2]int{1000, 1000}, rec.chowned[filepath.Join(cfg.DataDir, "epubs", "a.epub")])

	// Umask applied and identity dropped before the exec.
	assert.Equal(t, 0o022, rec.umask)
	assert.Equal(t, []int{1000, 1000, 1000}, rec.resgid)
	assert.Equal(t, []int{1000, 1000, 1000}, rec.resuid)
	assert.Equal(t, "/bin/true", rec.execArgv0)
	assert.Equal(t, []string{"/bin/true", "arg1"}, rec.execArgv)
}

func TestRunReusesExistingGroupGID(t *testing.T) {
	rec := newSysRecorder()
	cfg := testConfig(t, rec.syscalls())
	cfg.GID = 100 // matches the pre-existing "users" group

	require.NoError(t, Run(cfg, []string{"/bin/true"}))

	u, err := cfg.DB.LookupUser("litkeeper")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, uint32(100), u.GID)

	// No group named after the user was created.
	g, err := cfg.DB.LookupGroup("litkeeper")
	require.NoError(t, err)
	assert.Nil(t, g)

	assert.Equal(t, []int{100, 100, 100}, rec.resgid)
}

func TestRunSecondStartSkipsChown(t *testing.T) {
	rec := newSysRecorder()
	cfg := testConfig(t, rec.syscalls())
	require.NoError(t, Run(cfg, []string{"/bin/true"}))

	rec2 := newSysRecorder()
	cfg.Sys = rec2.syscalls()
	require.NoError(t, Run(cfg, []string{"/bin/true"}))

	assert.Empty(t, rec2.chowned, "ownership fix must only happen on first run")
	assert.Equal(t, "/bin/true", rec2.execArgv0, "startup proceeds straight to exec")
	assert.Equal(t, 0o022, rec2.umask)
}

func TestRunDropOrder(t *testing.T) {
	rec := newSysRecorder()
	cfg := testConfig(t, rec.syscalls())

	require.NoError(t, Run(cfg, []string{"/bin/true"}))

	// Groups are dropped before the UID; exec is last.
	want := []string{"umask", "setgroups", "setresgid", "setresuid", "exec"}
	var got []string
	for _, c := range rec.calls {
		if c != "lchown" {
			got = append(got, c)
		}
	}
	assert.Equal(t, want, got)
}

func TestRunCustomUmask(t *testing.T) {
	rec := newSysRecorder()
	cfg := testConfig(t, rec.syscalls())
	cfg.Umask = 0o077

	require.NoError(t, Run(cfg, []string{"/bin/true"}))
	assert.Equal(t, 0o077, rec.umask)
}

func TestRunRequiresCommand(t *testing.T) {
	rec := newSysRecorder()
	cfg := testConfig(t, rec.syscalls())

	err := Run(cfg, nil)
	assert.ErrorContains(t, err, "no command")
}

func TestRunUnknownCommand(t *testing.T) {
	rec := newSysRecorder()
	cfg := testConfig(t, rec.syscalls())

	err := Run(cfg, []string{"definitely-not-a-real-binary-xyz"})
	assert.ErrorContains(t, err, "resolve command")
}
