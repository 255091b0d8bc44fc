package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opendatabs/odsync/internal/changetrack"
	"github.com/opendatabs/odsync/internal/config"
	"github.com/opendatabs/odsync/internal/db"
	"github.com/opendatabs/odsync/internal/ods"
	"github.com/opendatabs/odsync/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDestination struct {
	delivered []string
	failOn    string
}

func (d *recordingDestination) Name() string { return "recording" }

func (d *recordingDestination) Deliver(_ context.Context, a *publish.Artifact) error {
	if a.RemoteName() == d.failOn {
		return errors.New("550 permission denied")
	}
	d.delivered = append(d.delivered, a.RemoteName())
	return nil
}

type fakeCatalog struct {
	pushes    int
	published [][]string
	err       error
}

func (c *fakeCatalog) Push(context.Context, *ods.PushTarget, any) error {
	c.pushes++
	return c.err
}

func (c *fakeCatalog) PublishDatasets(_ context.Context, uids []string) error {
	if c.err != nil {
		return c.err
	}
	c.published = append(c.published, uids)
	return nil
}

func newTestRunner(t *testing.T, catalog Catalog, dest publish.Destination) (*Runner, *changetrack.Tracker) {
	t.Helper()
	conn, err := db.Open(db.MemoryPath)
	require.NoError(t, err)
	journal, err := changetrack.NewJournalWithDB(conn)
	require.NoError(t, err)
	tracker, err := changetrack.NewTracker(journal, changetrack.MD5)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracker.Close() })

	r := NewRunner(config.Default(), publish.NewPublisher(tracker, nil), catalog, nil)
	if dest != nil {
		r.destinationFor = func(context.Context, *Job) (publish.Destination, error) { return dest, nil }
	}
	return r, tracker
}

func TestRunner_PublishesOnlyChanged(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "export", "a.csv"))
	touch(t, filepath.Join(dir, "export", "b.csv"))

	dest := &recordingDestination{}
	catalog := &fakeCatalog{}
	r, _ := newTestRunner(t, catalog, dest)

	m := &Manifest{Dir: dir, Jobs: []*Job{{
		Name: "export", Artifacts: []string{"export/*.csv"}, Destination: DestinationFTP, ODSDataset: "100395",
	}}}

	report, err := r.Run(testContext(t), m, RunOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 2, report.Count(publish.StatePublished))
	assert.Equal(t, []string{"a.csv", "b.csv"}, dest.delivered)
	assert.Equal(t, [][]string{{"100395"}, {"100395"}}, catalog.published)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "export", "b.csv"), []byte("changed"), 0o644))

	report, err = r.Run(testContext(t), m, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(publish.StateUnchanged))
	assert.Equal(t, 1, report.Count(publish.StatePublished))
	assert.Equal(t, []string{"a.csv", "b.csv", "b.csv"}, dest.delivered)
}

func TestRunner_FirstFailureAborts(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.csv"))
	touch(t, filepath.Join(dir, "b.csv"))
	touch(t, filepath.Join(dir, "c.csv"))

	dest := &recordingDestination{failOn: "b.csv"}
	r, tracker := newTestRunner(t, nil, dest)

	m := &Manifest{Dir: dir, Jobs: []*Job{
		{Name: "first", Artifacts: []string{"*.csv"}, Destination: DestinationFTP},
		{Name: "second", Artifacts: []string{"a.csv"}, Destination: DestinationS3, Force: true},
	}}

	report, err := r.Run(testContext(t), m, RunOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job first")
	require.Len(t, report.Entries, 2)
	assert.Equal(t, publish.StatePublished, report.Entries[0].State)
	assert.Equal(t, publish.StatePublishFailed, report.Entries[1].State)
	assert.Equal(t, []string{"a.csv"}, dest.delivered, "no artifact after the failure is attempted")

	changed, err := tracker.HasChanged(filepath.Join(dir, "b.csv"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestRunner_DryRunAndForce(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.csv"))

	dest := &recordingDestination{}
	r, _ := newTestRunner(t, nil, dest)
	m := &Manifest{Dir: dir, Jobs: []*Job{{Name: "a", Artifacts: []string{"a.csv"}, Destination: DestinationFTP}}}

	report, err := r.Run(testContext(t), m, RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(publish.StateChanged))
	assert.Empty(t, dest.delivered)

	_, err = r.Run(testContext(t), m, RunOptions{})
	require.NoError(t, err)
	report, err = r.Run(testContext(t), m, RunOptions{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(publish.StatePublished))
	assert.Len(t, dest.delivered, 2)
}

func TestRunner_MissingArtifactsAndCatalog(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.csv"))
	r, _ := newTestRunner(t, nil, &recordingDestination{})

	_, err := r.Run(testContext(t), &Manifest{Dir: dir, Jobs: []*Job{
		{Name: "a", Artifacts: []string{"missing.csv"}, Destination: DestinationFTP},
	}}, RunOptions{})
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = r.Run(testContext(t), &Manifest{Dir: dir, Jobs: []*Job{
		{Name: "a", Artifacts: []string{"a.csv"}, Destination: DestinationFTP, ODSDataset: "100395"},
	}}, RunOptions{})
	assert.ErrorIs(t, err, ErrNoCatalog)
}

func TestRunner_RealtimeDestination(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rt.csv"), []byte("a;b\n1;2\n"), 0o644))

	catalog := &fakeCatalog{}
	r, _ := newTestRunner(t, catalog, nil)

	m := &Manifest{Dir: dir, Jobs: []*Job{{
		Name: "rt", Artifacts: []string{"rt.csv"}, Destination: DestinationRealtime, Delimiter: ";",
		Push: &Push{URL: "https://data.bs.ch/api/push/1.0/100223/echtzeit/push/", Key: "k"},
	}}}

	report, err := r.Run(testContext(t), m, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(publish.StatePublished))
	assert.Equal(t, 1, catalog.pushes)

	catalog.err = errors.New("status 401")
	_, err = r.Run(testContext(t), m, RunOptions{Force: true})
	assert.Error(t, err)
}

func TestRunner_CancelledContext(t *testing.T) {
	r, _ := newTestRunner(t, nil, &recordingDestination{})
	ctx, cancel := context.WithCancel(testContext(t))
	cancel()

	_, err := r.Run(ctx, &Manifest{Jobs: []*Job{{Name: "a", Artifacts: []string{"a.csv"}, Destination: DestinationFTP}}}, RunOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
