package main

import (
	"github.com/opendatabs/odsync/internal/pipeline"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newRunCmd())
}

func newRunCmd() *cobra.Command {
	var manifestPath string
	var force bool
	var dryRun bool

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the publication jobs of a manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := pipeline.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			for _, job := range m.Jobs {
				if err := cfg.ValidateDestination(job.Destination); err != nil {
					return err
				}
			}
			return runJobs(cmd, m, pipeline.RunOptions{Force: force, DryRun: dryRun})
		},
	}

	runCmd.Flags().SortFlags = false
	runCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "jobs.yaml", "Job manifest")
	runCmd.Flags().BoolVarP(&force, "force", "f", false, "Publish every artifact even when unchanged")
	runCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Only report which artifacts changed")

	return runCmd
}
