package fsops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ewildgoose/snapback2/pkg/execrun"
)

// hardlinkRunner simulates cp -al/mv/rm against a real directory tree so
// inode-sharing assertions exercise the actual syscalls, without needing a
// real cp binary in the test environment.
type hardlinkRunner struct{}

func (hardlinkRunner) Run(ctx context.Context, opts execrun.Options) (*execrun.Result, error) {
	switch opts.Command {
	case "cp":
		src, dst := opts.Args[len(opts.Args)-2], opts.Args[len(opts.Args)-1]
		return &execrun.Result{}, hardlinkTree(src, dst)
	case "mv":
		return &execrun.Result{}, os.Rename(opts.Args[0], opts.Args[1])
	case "rm":
		return &execrun.Result{}, os.RemoveAll(opts.Args[len(opts.Args)-1])
	case "touch":
		path := opts.Args[len(opts.Args)-1]
		f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
		if err != nil {
			return nil, err
		}
		return &execrun.Result{}, f.Close()
	}
	return &execrun.Result{}, nil
}

func hardlinkTree(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		srcPath := filepath.Join(src, e.Name())
		dstPath := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := hardlinkTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := os.Link(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func inode(t *testing.T, path string) uint64 {
	t.Helper()
	var st unix.Stat_t
	require.NoError(t, unix.Stat(path, &st))
	return st.Ino
}

func TestClone_SharesInodesWithSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hourly.0")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "file.txt"), []byte("contents"), 0o644))

	ops := New(hardlinkRunner{}, nil, false)
	dst := filepath.Join(dir, "hourly.1")
	require.NoError(t, ops.Clone(context.Background(), src, dst))

	assert.Equal(t, inode(t, filepath.Join(src, "file.txt")), inode(t, filepath.Join(dst, "file.txt")),
		"cloned file must share an inode with its source, not duplicate data")
}
