// Package pipeline runs the publication jobs of a manifest: each job expands
// its artifact globs and publishes every changed artifact to its destination.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opendatabs/odsync/internal/config"
	"github.com/opendatabs/odsync/internal/ods"
	"github.com/opendatabs/odsync/internal/publish"
)

var ErrNoCatalog = errors.New("pipeline: job needs the ods api but no client is configured")

// Catalog is the part of the ODS client used by jobs.
type Catalog interface {
	Push(ctx context.Context, target *ods.PushTarget, records any) error
	PublishDatasets(ctx context.Context, uids []string) error
}

// RunOptions apply to every job of a run.
type RunOptions struct {
	Force  bool
	DryRun bool
}

// Entry is the outcome for one artifact of a job.
type Entry struct {
	Job string
	*publish.Result
}

type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Entries  []*Entry
}

// Count returns the number of artifacts that ended in state s.
func (r *Report) Count(s publish.State) int {
	n := 0
	for _, e := range r.Entries {
		if e.State == s {
			n++
		}
	}
	return n
}

type destinationFunc func(ctx context.Context, job *Job) (publish.Destination, error)

type Runner struct {
	cfg       *config.Config
	publisher *publish.Publisher
	catalog   Catalog
	logger    *slog.Logger

	destinationFor destinationFunc
}

// NewRunner wires a runner. catalog may be nil when no job pushes to the
// realtime API or publishes datasets.
func NewRunner(cfg *config.Config, publisher *publish.Publisher, catalog Catalog, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{cfg: cfg, publisher: publisher, catalog: catalog, logger: logger}
	r.destinationFor = r.buildDestination
	return r
}

// Run executes the jobs in order. The first failure aborts the run and is
// returned together with the report so far.
func (r *Runner) Run(ctx context.Context, m *Manifest, opts RunOptions) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: time.Now()}
	defer func() { report.Finished = time.Now() }()

	log := r.logger.With("run", report.RunID)
	log.Info("run started", "jobs", len(m.Jobs), "dry_run", opts.DryRun)

	for _, job := range m.Jobs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := r.runJob(ctx, log, m.Dir, job, opts, report); err != nil {
			log.Error("run aborted", "job", job.Name, "error", err)
			return report, fmt.Errorf("job %s: %w", job.Name, err)
		}
	}

	log.Info("run finished",
		"published", report.Count(publish.StatePublished),
		"unchanged", report.Count(publish.StateUnchanged),
		"changed", report.Count(publish.StateChanged),
		"took", time.Since(report.Started).Round(time.Millisecond),
	)
	return report, nil
}

func (r *Runner) runJob(ctx context.Context, log *slog.Logger, dir string, job *Job, opts RunOptions, report *Report) error {
	log = log.With("job", job.Name)

	files, err := ExpandGlobs(dir, job.Artifacts)
	if err != nil {
		return err
	}

	dest, err := r.destinationFor(ctx, job)
	if err != nil {
		return err
	}

	pubOpts := publish.Options{Force: job.Force || opts.Force, DryRun: opts.DryRun}
	if uids := job.Datasets(); len(uids) > 0 {
		if r.catalog == nil {
			return ErrNoCatalog
		}
		pubOpts.After = func(ctx context.Context, _ *publish.Artifact) error {
			return r.catalog.PublishDatasets(ctx, uids)
		}
	}

	log.Info("job started", "artifacts", len(files), "destination", dest.Name())
	for _, file := range files {
		res, err := r.publisher.PublishIfChanged(ctx, publish.NewArtifact(file), dest, pubOpts)
		if res != nil {
			report.Entries = append(report.Entries, &Entry{Job: job.Name, Result: res})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) buildDestination(ctx context.Context, job *Job) (publish.Destination, error) {
	switch job.Destination {
	case DestinationFTP:
		return publish.NewFTP(r.cfg.FTPFor(job.RemoteDir))
	case DestinationS3:
		return publish.NewS3(ctx, r.cfg.S3For(job.RemoteDir))
	case DestinationRealtime:
		if r.catalog == nil {
			return nil, ErrNoCatalog
		}
		target := ods.PushTarget{
			URL:       job.Push.URL,
			DeleteURL: job.Push.DeleteURL,
			Key:       job.Push.Key,
			APIKey:    job.Push.APIKey,
		}
		if target.APIKey == "" {
			target.APIKey = r.cfg.ODS.APIKey
		}
		return publish.NewRealtime(r.catalog, target, job.TableOptions(), 0)
	default:
		return nil, fmt.Errorf("unknown destination %q", job.Destination)
	}
}
