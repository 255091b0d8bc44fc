// Package publish delivers artifacts to remote destinations, republishing an
// artifact only when its content changed since its last successful delivery.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/opendatabs/odsync/internal/changetrack"
)

var ErrNilArtifact = errors.New("publish: nil artifact")

// Tracker is the fingerprint store consulted before and updated after a delivery.
type Tracker interface {
	Check(path string) (*changetrack.Check, error)
	UpdateDigest(path, digest string, size int64) error
}

// AfterPublish runs after a changed artifact was delivered, before its
// fingerprint is updated. An error marks the publication as failed.
type AfterPublish func(ctx context.Context, a *Artifact) error

// Options tune PublishIfChanged.
type Options struct {
	// Force delivers even when the fingerprint matches.
	Force bool
	// DryRun stops after the change check.
	DryRun bool
	After  AfterPublish
}

// Result is the outcome for one artifact.
type Result struct {
	Artifact    *Artifact
	Destination string
	State       State
	Size        int64
	Digest      string
	Err         error
}

type Publisher struct {
	tracker Tracker
	logger  *slog.Logger
}

func NewPublisher(tracker Tracker, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{tracker: tracker, logger: logger}
}

// Publish delivers the artifact unconditionally. There is no retry; the
// caller decides whether to abort the run.
func (p *Publisher) Publish(ctx context.Context, a *Artifact, dest Destination) error {
	if a == nil {
		return ErrNilArtifact
	}
	if err := dest.Deliver(ctx, a); err != nil {
		return fmt.Errorf("publish %s to %s: %w", a.Path, dest.Name(), err)
	}
	return nil
}

// PublishIfChanged runs the change-tracked publication of one artifact. The
// fingerprint is updated only after a successful delivery, so a failed
// delivery leaves the previous fingerprint in place and the next run retries.
// The returned error is also stored in Result.Err.
func (p *Publisher) PublishIfChanged(ctx context.Context, a *Artifact, dest Destination, opts Options) (*Result, error) {
	if a == nil {
		return nil, ErrNilArtifact
	}

	res := &Result{Artifact: a, Destination: dest.Name(), State: StateUnchecked}
	log := p.logger.With("artifact", a.Path, "destination", res.Destination)

	check, err := p.tracker.Check(a.Path)
	if err != nil {
		res.Err = fmt.Errorf("check %s: %w", a.Path, err)
		return res, res.Err
	}
	res.Size = check.Size
	res.Digest = check.Current

	if !check.Changed && !opts.Force {
		res.State = StateUnchanged
		log.Info("artifact unchanged, skipping", "digest", check.Current)
		return res, nil
	}

	res.State = StateChanged
	if opts.DryRun {
		log.Info("artifact changed (dry run)", "digest", check.Current, "size", humanize.Bytes(uint64(check.Size)))
		return res, nil
	}

	res.State = StatePublishing
	log.Info("publishing artifact", "digest", check.Current, "size", humanize.Bytes(uint64(check.Size)), "forced", opts.Force && !check.Changed)

	if err := p.Publish(ctx, a, dest); err != nil {
		return p.fail(res, log, err)
	}
	if opts.After != nil {
		if err := opts.After(ctx, a); err != nil {
			return p.fail(res, log, fmt.Errorf("after publish %s: %w", a.Path, err))
		}
	}

	// record what was checked; a rewrite since then stays changed
	if err := p.tracker.UpdateDigest(check.Path, check.Current, check.Size); err != nil {
		// delivered but not recorded: the next run publishes again, which is harmless
		return p.fail(res, log, fmt.Errorf("update fingerprint %s: %w", a.Path, err))
	}

	res.State = StatePublished
	log.Info("artifact published")
	return res, nil
}

func (p *Publisher) fail(res *Result, log *slog.Logger, err error) (*Result, error) {
	res.State = StatePublishFailed
	res.Err = err
	log.Error("publish failed", "error", err)
	return res, err
}
