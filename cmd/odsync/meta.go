package main

import (
	"fmt"
	"os"

	"github.com/opendatabs/odsync/internal/mdpath"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newMetaCmd())
}

func newMetaCmd() *cobra.Command {
	var paths []string

	metaCmd := &cobra.Command{
		Use:   "meta <file.json>",
		Short: "Print the first resolvable metadata path of a JSON document",
		Args:  cobra.ExactArgs(1),
		// reads a local file only
		PersistentPreRunE:  func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			doc, err := mdpath.Decode(file)
			if err != nil {
				return err
			}
			value, err := mdpath.FirstString(doc, paths...)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), value)
			return err
		},
	}

	metaCmd.Flags().StringArrayVarP(&paths, "path", "p", nil, "Dotted path to try, in order (repeatable)")
	_ = metaCmd.MarkFlagRequired("path")

	return metaCmd
}
