package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/nbtrack/internal/record"
	"github.com/Zuo-Peng/nbtrack/internal/render"
	"github.com/Zuo-Peng/nbtrack/internal/tui"
)

func showCmd() *cobra.Command {
	var cellID, query string
	var width int
	var plain bool

	cmd := &cobra.Command{
		Use:   "show <log>",
		Short: "Browse a lineage log",
		Long: `Show the records of a lineage log. On a terminal this opens an interactive
browser (Enter copies the selected cell's input); otherwise, or with --plain,
the records are rendered to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, entries, err := record.ReadLog(args[0])
			if err != nil {
				return err
			}

			if !plain && term.IsTerminal(int(os.Stdout.Fd())) {
				return tui.Run(entries, tui.Options{CellID: cellID, Query: query})
			}

			out, _ := render.RenderLog(render.Filter(entries, cellID, query), render.Options{
				HitSeq: -1,
				Width:  width,
				Query:  query,
				Plain:  plain,
			})
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&cellID, "cell", "", "Only records of this cell id")
	cmd.Flags().StringVar(&query, "query", "", "Only records whose input or output contains this text")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = no wrap)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Plain text without colors or the interactive browser")

	return cmd
}
