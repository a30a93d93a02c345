package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/nbtrack/internal/index"
)

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index [log...]",
		Short: "Index lineage logs for full-text search",
		Long: `Index the given lineage logs, or every log under logs_root matching
log_patterns when none are given. Unchanged logs are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			var stats index.Stats
			if len(args) > 0 {
				fmt.Fprintf(os.Stderr, "Indexing %d log(s)...\n", len(args))
				stats, err = index.IndexFiles(db, args)
			} else {
				fmt.Fprintf(os.Stderr, "Scanning %s...\n", cfg.LogsRoot)
				stats, err = index.IndexAll(db, cfg.LogsRoot, cfg.LogPatterns)
			}
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Fprintf(os.Stderr, "Done. %s\n", stats)
			return nil
		},
	}
}
