package main

import (
	"github.com/opendatabs/odsync/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newPublishCmd())
}

func newPublishCmd() *cobra.Command {
	var to string
	var remoteDir string
	var dataset string
	var force bool
	var dryRun bool

	publishCmd := &cobra.Command{
		Use:   "publish <file|glob>...",
		Short: "Upload changed artifacts to FTP or S3",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateDestination(to); err != nil {
				return err
			}

			job := &pipeline.Job{
				Name:        "publish",
				Artifacts:   args,
				Destination: to,
				RemoteDir:   remoteDir,
				ODSDataset:  dataset,
			}
			m := &pipeline.Manifest{Jobs: []*pipeline.Job{job}}
			if err := m.Validate(); err != nil {
				return err
			}
			return runJobs(cmd, m, pipeline.RunOptions{Force: force, DryRun: dryRun})
		},
	}

	publishCmd.Flags().SortFlags = false
	publishCmd.Flags().StringVarP(&to, "to", "t", pipeline.DestinationFTP, "Destination: ftp or s3")
	publishCmd.Flags().StringVarP(&remoteDir, "remote-dir", "r", "", "Remote directory (ftp) or key prefix (s3)")
	publishCmd.Flags().StringVar(&dataset, "ods-dataset", "", "Dataset uids to publish after each upload, comma separated")
	publishCmd.Flags().BoolVarP(&force, "force", "f", false, "Upload even when unchanged")
	publishCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Only report which artifacts changed")

	return publishCmd
}
