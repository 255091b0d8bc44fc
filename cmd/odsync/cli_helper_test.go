package main

import (
	"bytes"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// executeCLI runs a fresh command tree in an isolated working directory
// and state dir, returning everything written to stdout and stderr.
func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	prevLogger := slog.Default()
	t.Cleanup(func() {
		closeFileLog()
		slog.SetDefault(prevLogger)
		cfg = nil
	})

	root := newRootCmd()
	root.AddCommand(newPublishCmd(), newPushCmd(), newODSPublishCmd(), newStatusCmd(), newRunCmd(), newMetaCmd(), newVersionCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SilenceErrors = true
	root.SetArgs(args)

	err := root.ExecuteContext(testContext(t))
	return out.String(), err
}

// isolate points HOME and the working directory at temp dirs and returns a
// state dir inside the working directory.
func isolate(t *testing.T) string {
	t.Helper()
	oldHome := home
	home = t.TempDir()
	t.Cleanup(func() { home = oldHome })

	dir := t.TempDir()
	testChdir(t, dir)
	t.Setenv("ODSYNC_CONFIG_PATH", "")
	return filepath.Join(dir, "state")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// closedPort returns a local port nobody listens on.
func closedPort(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())
	return port
}
