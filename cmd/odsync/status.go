package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/opendatabs/odsync/internal/changetrack"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newStatusCmd())
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [file]...",
		Short: "Show whether artifacts changed since their last publication",
		Long:  "Without arguments, lists every fingerprint recorded in the state directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			tracker, closeTracker, err := openTracker(cfg, false)
			if err != nil {
				return err
			}
			defer closeTracker()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				return listRecords(out, tracker)
			}

			for _, path := range args {
				check, err := tracker.Check(path)
				if err != nil {
					return err
				}

				stored := "-"
				if check.Stored != nil {
					stored = check.Stored.Digest
				}
				state := gray.Render("unchanged")
				if check.Changed {
					state = cyan.Render("changed  ")
				}
				fmt.Fprintf(out, "%s %s %s %s\n", state, check.Current, gray.Render(stored), check.Path)
			}
			return nil
		},
	}
}

func listRecords(out io.Writer, tracker *changetrack.Tracker) error {
	records, count, err := tracker.Records()
	if err != nil {
		return err
	}

	for _, rec := range records {
		published := "-"
		if !rec.UpdatedAt.IsZero() {
			published = rec.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(out, "%s %s:%s %8s %s\n",
			gray.Render(published), rec.Algorithm, rec.Digest, humanize.Bytes(uint64(rec.Size)), rec.Path)
	}
	fmt.Fprintf(out, "%d artifact(s) tracked\n", count)
	return nil
}
