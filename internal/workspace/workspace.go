// Package workspace owns the state directory shared by odsync runs: the
// fingerprint journal, hash files, log files and the run lock.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/opendatabs/odsync/internal/utils"
)

const (
	journalFile = "journal.db"
	hashesDir   = "hashes"
	logsDir     = "logs"
	lockFile    = "odsync.lock"
)

var ErrWorkspaceLocked = errors.New("workspace locked by another process")

type Workspace struct {
	Root        string
	JournalPath string
	HashesDir   string
	LogsDir     string

	flock *flock.Flock
}

func NewWorkspace(stateDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(stateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", stateDir, err)
	}

	return &Workspace{
		Root:        root,
		JournalPath: filepath.Join(root, journalFile),
		HashesDir:   filepath.Join(root, hashesDir),
		LogsDir:     filepath.Join(root, logsDir),
		flock:       flock.New(filepath.Join(root, lockFile)),
	}, nil
}

// Lock takes the run lock without waiting. Two runs updating the same
// fingerprints would race between delivery and update.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.Root); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.Root, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}
	return nil
}

func (w *Workspace) Unlock() error {
	// not ours to remove
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// Setup locks the workspace and creates its directories.
func (w *Workspace) Setup() error {
	if err := w.Lock(); err != nil {
		return err
	}

	for _, dir := range []string{w.HashesDir, w.LogsDir} {
		if err := utils.EnsureDir(dir); err != nil {
			_ = w.Unlock()
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	slog.Debug("workspace", "root", w.Root)
	return nil
}
