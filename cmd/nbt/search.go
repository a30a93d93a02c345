package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/nbtrack/internal/index"
	"github.com/Zuo-Peng/nbtrack/internal/search"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorBlue    = "\033[1;34m"
	sColorDim     = "\033[2m"
)

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", sColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", sColorReset)
	return snippet
}

func plainSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", "")
	return strings.ReplaceAll(snippet, "<<<", "")
}

func searchCmd() *cobra.Command {
	var notebook, cellID, since string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across indexed cell inputs and outputs",
		Long: `Search indexed lineage logs using FTS5. Output is TSV for fzf integration:
  logPath, seq, eventTime, notebook, cellIndex, cellID, snippet

Recommended shell function (add to .zshrc):
  nbtf() {
    nbt search "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=3.. \
      --bind 'enter:execute(nbt open {1} --record {2})'
  }`,
		Args: cobra.ExactArgs(1),
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

			if notebook != "" {
				if abs, err := filepath.Abs(notebook); err == nil {
					notebook = abs
				}
			}

			// Auto-update index before searching
			if _, err := index.IndexAll(db, cfg.LogsRoot, cfg.LogPatterns); err != nil {
				fmt.Fprintf(os.Stderr, "index: %v\n", err)
			}

			results, err := search.Search(db, search.Options{
				Query:    args[0],
				Notebook: notebook,
				CellID:   cellID,
				Since:    since,
				Limit:    limit,
			})
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			color := term.IsTerminal(int(os.Stdout.Fd()))
			for _, r := range results {
				snippet := strings.ReplaceAll(r.Snippet, "\t", " ")
				snippet = strings.ReplaceAll(snippet, "\n", " ")
				eventTime, cell := r.EventTime, r.CellID
				if color {
					snippet = colorizeSnippet(snippet)
					eventTime = sColorDim + eventTime + sColorReset
					cell = sColorBlue + cell + sColorReset
				} else {
					snippet = plainSnippet(snippet)
				}
				// first two fields (logPath, seq) stay plain for fzf {1} {2}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\t%s\t%d\t%s\t%s\n",
					r.LogPath,
					r.Seq,
					eventTime,
					r.NotebookPath,
					r.CellIndex,
					cell,
					snippet,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&notebook, "notebook", "", "Filter by notebook path")
	cmd.Flags().StringVar(&cellID, "cell", "", "Filter by cell id")
	cmd.Flags().StringVar(&since, "since", "", "Filter records observed since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")

	return cmd
}
