package main

import (
	"strings"

	"github.com/opendatabs/odsync/internal/ods"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newODSPublishCmd())
}

func newODSPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ods-publish <uid[,uid]>...",
		Short: "Publish catalog datasets, pacing consecutive requests",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uids := splitUIDs(args)
			if len(uids) == 0 {
				return ods.ErrNoDataset
			}

			catalog, err := newCatalog(cfg)
			if err != nil {
				return err
			}
			return catalog.PublishDatasets(cmd.Context(), uids)
		},
	}
}

func splitUIDs(args []string) []string {
	var uids []string
	for _, arg := range args {
		for _, uid := range strings.Split(arg, ",") {
			if uid = strings.TrimSpace(uid); uid != "" {
				uids = append(uids, uid)
			}
		}
	}
	return uids
}
