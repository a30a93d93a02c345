package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/nbtrack/internal/index"
	"github.com/Zuo-Peng/nbtrack/internal/record"
	"github.com/Zuo-Peng/nbtrack/internal/render"
)

func historyCmd() *cobra.Command {
	var width int
	var plain, oneline bool

	cmd := &cobra.Command{
		Use:   "history <notebook> <cell-id>",
		Short: "Show every indexed record of one cell across all logs",
		Long: `Show how one cell changed over time, across every indexed lineage log
that recorded it. The index is refreshed first. With --oneline each record is
printed as:
  log:line, eventTime, summary`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if _, err := index.IndexAll(db, cfg.LogsRoot, cfg.LogPatterns); err != nil {
				fmt.Fprintf(os.Stderr, "index: %v\n", err)
			}

			notebook := args[0]
			if abs, err := filepath.Abs(notebook); err == nil {
				notebook = abs
			}
			rows, err := db.CellHistory(notebook, args[1])
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			if len(rows) == 0 {
				return fmt.Errorf("no indexed records for cell %s of %s", args[1], notebook)
			}

			out := cmd.OutOrStdout()
			if oneline {
				for _, r := range rows {
					fmt.Fprintf(out, "%s:%d\t%s\t%s\n",
						r.LogPath, r.Line, r.EventTime.Local().Format("2006-01-02 15:04:05"), render.Summary(r.Entry))
				}
				return nil
			}

			entries := make([]record.Entry, len(rows))
			for i, r := range rows {
				entries[i] = r.Entry
			}
			if !plain && !term.IsTerminal(int(os.Stdout.Fd())) {
				plain = true
			}
			content, _ := render.RenderLog(entries, render.Options{
				HitSeq: -1,
				Width:  width,
				Plain:  plain,
			})
			fmt.Fprint(out, content)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = no wrap)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Plain text without colors")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "One summary line per record")

	return cmd
}
