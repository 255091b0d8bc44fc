package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/opendatabs/odsync/internal/changetrack"
	"github.com/opendatabs/odsync/internal/config"
	"github.com/opendatabs/odsync/internal/ods"
	"github.com/opendatabs/odsync/internal/pipeline"
	"github.com/opendatabs/odsync/internal/publish"
	"github.com/opendatabs/odsync/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	red   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// openTracker opens the configured fingerprint store. With lock set, the
// workspace is locked for the lifetime of the tracker; close releases both.
func openTracker(c *config.Config, lock bool) (tracker *changetrack.Tracker, closeFn func(), err error) {
	ws, err := workspace.NewWorkspace(c.StateDir)
	if err != nil {
		return nil, nil, err
	}
	if lock {
		if err := ws.Setup(); err != nil {
			return nil, nil, err
		}
	}
	defer func() {
		if err != nil && lock {
			_ = ws.Unlock()
		}
	}()

	var backend changetrack.Backend
	switch c.Store {
	case config.StoreHashFiles:
		backend, err = changetrack.NewHashFiles(ws.HashesDir)
	default:
		backend, err = changetrack.OpenJournal(ws.JournalPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", c.Store, err)
	}

	tracker, err = changetrack.NewTracker(backend, c.HashAlgorithm())
	if err != nil {
		_ = backend.Close()
		return nil, nil, err
	}

	closeFn = func() {
		if err := tracker.Close(); err != nil {
			slog.Warn("close fingerprint store", "error", err)
		}
		if lock {
			if err := ws.Unlock(); err != nil {
				slog.Warn("unlock workspace", "error", err)
			}
		}
	}
	return tracker, closeFn, nil
}

func newCatalog(c *config.Config) (*ods.Client, error) {
	return ods.New(c.ODSClient(), slog.Default())
}

// runJobs runs m against the configured stores and destinations and prints
// one line per artifact.
func runJobs(cmd *cobra.Command, m *pipeline.Manifest, opts pipeline.RunOptions) error {
	tracker, closeTracker, err := openTracker(cfg, true)
	if err != nil {
		return err
	}
	defer closeTracker()

	catalog, err := newCatalog(cfg)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(cfg, publish.NewPublisher(tracker, slog.Default()), catalog, slog.Default())
	report, err := runner.Run(cmd.Context(), m, opts)
	if report != nil {
		printReport(cmd.OutOrStdout(), report)
	}
	return err
}

func printReport(w io.Writer, report *pipeline.Report) {
	for _, e := range report.Entries {
		fmt.Fprintf(w, "%s %s %s\n", styleState(e.State), e.Artifact.Path, gray.Render(e.Destination))
	}
}

func styleState(s publish.State) string {
	label := fmt.Sprintf("%-14s", s)
	switch s {
	case publish.StatePublished, publish.StateChanged:
		return green.Render(label)
	case publish.StatePublishFailed:
		return red.Render(label)
	default:
		return gray.Render(label)
	}
}
