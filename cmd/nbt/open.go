package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/nbtrack/internal/open"
)

func openCmd() *cobra.Command {
	var seq int

	cmd := &cobra.Command{
		Use:   "open <log>",
		Short: "Open a lineage log in $EDITOR at a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return open.OpenLog(args[0], seq)
		},
	}

	cmd.Flags().IntVar(&seq, "record", -1, "Record number (as printed by search) to jump to")

	return cmd
}
