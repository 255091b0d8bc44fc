package main

import (
	"fmt"
	"log/slog"

	"github.com/opendatabs/odsync/internal/ods"
	"github.com/opendatabs/odsync/internal/pipeline"
	"github.com/opendatabs/odsync/internal/publish"
	"github.com/opendatabs/odsync/internal/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newPushCmd())
}

func newPushCmd() *cobra.Command {
	var push pipeline.Push
	var delimiter string
	var inferTypes bool
	var force bool
	var dryRun bool
	var deleteRows bool

	pushCmd := &cobra.Command{
		Use:   "push <csv>",
		Short: "Push the rows of a changed CSV file to a realtime dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := &pipeline.Job{
				Name:        "push",
				Artifacts:   args,
				Destination: pipeline.DestinationRealtime,
				Push:        &push,
				Delimiter:   delimiter,
				InferTypes:  inferTypes,
			}
			if err := job.Validate(); err != nil {
				return err
			}

			if deleteRows {
				return deleteRecords(cmd, job, args[0])
			}

			m := &pipeline.Manifest{Jobs: []*pipeline.Job{job}}
			return runJobs(cmd, m, pipeline.RunOptions{Force: force, DryRun: dryRun})
		},
	}

	pushCmd.Flags().SortFlags = false
	pushCmd.Flags().StringVar(&push.URL, "push-url", "", "Realtime push endpoint of the dataset")
	pushCmd.Flags().StringVar(&push.Key, "push-key", "", "Realtime push key")
	pushCmd.Flags().StringVar(&push.APIKey, "api-key", "", "API key for unpublished datasets (default: ods.api_key)")
	pushCmd.Flags().StringVar(&push.DeleteURL, "delete-url", "", "Realtime delete endpoint of the dataset")
	pushCmd.Flags().StringVarP(&delimiter, "delimiter", "d", ",", "CSV field delimiter")
	pushCmd.Flags().BoolVar(&inferTypes, "infer-types", false, "Send numbers and booleans as JSON types")
	pushCmd.Flags().BoolVarP(&force, "force", "f", false, "Push even when unchanged")
	pushCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Only report whether the file changed")
	pushCmd.Flags().BoolVar(&deleteRows, "delete", false, "Send the rows to the delete endpoint instead, ignoring fingerprints")

	return pushCmd
}

// deleteRecords removes the file's rows from the dataset. Deletions are not
// fingerprinted: they are explicit operator actions.
func deleteRecords(cmd *cobra.Command, job *pipeline.Job, path string) error {
	if job.Push.DeleteURL == "" {
		return ods.ErrNoDeleteURL
	}

	tbl, err := table.ReadCSVFile(path, job.TableOptions())
	if err != nil {
		return err
	}

	catalog, err := newCatalog(cfg)
	if err != nil {
		return err
	}

	target := &ods.PushTarget{URL: job.Push.URL, DeleteURL: job.Push.DeleteURL, Key: job.Push.Key, APIKey: job.Push.APIKey}
	if target.APIKey == "" {
		target.APIKey = cfg.ODS.APIKey
	}

	batches := table.Batches(tbl.Records(), publish.DefaultPushBatchSize)
	for i, batch := range batches {
		if err := catalog.Delete(cmd.Context(), target, batch); err != nil {
			return fmt.Errorf("delete batch %d/%d: %w", i+1, len(batches), err)
		}
	}
	slog.Info("records deleted", "rows", tbl.Len(), "target", target.String())
	return nil
}
