package publish

import (
	"context"
	"fmt"

	"github.com/opendatabs/odsync/internal/ods"
	"github.com/opendatabs/odsync/internal/table"
)

const DefaultPushBatchSize = 1000

type pusher interface {
	Push(ctx context.Context, target *ods.PushTarget, records any) error
}

// Realtime pushes the rows of a CSV artifact to a dataset's realtime API.
type Realtime struct {
	client    pusher
	target    ods.PushTarget
	csv       table.Options
	batchSize int
}

func NewRealtime(client pusher, target ods.PushTarget, csv table.Options, batchSize int) (*Realtime, error) {
	if target.URL == "" {
		return nil, ods.ErrNoPushURL
	}
	if target.Key == "" {
		return nil, ods.ErrNoPushKey
	}
	if batchSize <= 0 {
		batchSize = DefaultPushBatchSize
	}
	return &Realtime{client: client, target: target, csv: csv, batchSize: batchSize}, nil
}

func (r *Realtime) Name() string {
	return "realtime:" + r.target.String()
}

// Deliver pushes all rows. Batches already accepted stay accepted when a
// later batch fails; the realtime API upserts, so the next run repeats them.
func (r *Realtime) Deliver(ctx context.Context, a *Artifact) error {
	tbl, err := table.ReadCSVFile(a.Path, r.csv)
	if err != nil {
		return err
	}

	batches := table.Batches(tbl.Records(), r.batchSize)
	for i, batch := range batches {
		if err := r.client.Push(ctx, &r.target, batch); err != nil {
			return fmt.Errorf("push batch %d/%d: %w", i+1, len(batches), err)
		}
	}
	return nil
}
