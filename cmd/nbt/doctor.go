package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/nbtrack/internal/index"
	"github.com/Zuo-Peng/nbtrack/internal/scan"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify config, log root, DB, FTS5, and show stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "=== Config ===")
			if cfg.Path == "" {
				fmt.Fprintln(out, "  File: (none, using defaults)")
			} else {
				fmt.Fprintf(out, "  File: %s\n", cfg.Path)
			}
			fmt.Fprintf(out, "  Format: %s  Debounce: %gs  Log: %s/%s\n",
				cfg.Format, cfg.Debounce, cfg.LogLevel, cfg.LogFormat)
			if _, err := newLogger(cfg, os.Stderr); err != nil {
				fmt.Fprintf(out, "  Logger: %v\n", err)
			}

			fmt.Fprintln(out, "\n=== Log Root ===")
			checkDir(out, "Logs", cfg.LogsRoot)
			files, err := scan.ScanLogs(cfg.LogsRoot, cfg.LogPatterns)
			if err != nil {
				fmt.Fprintf(out, "  scan error: %v\n", err)
			} else {
				fmt.Fprintf(out, "  Lineage logs matching %v: %d\n", cfg.LogPatterns, len(files))
			}

			fmt.Fprintln(out, "\n=== Database ===")
			fmt.Fprintf(out, "  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Fprintln(out, "  Status: NOT FOUND (run 'nbt index' first)")
				return nil
			}

			db, err := index.OpenDB(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer db.Close()

			logCount, err := db.LogCount()
			if err != nil {
				return fmt.Errorf("count logs: %w", err)
			}
			recordCount, err := db.RecordCount()
			if err != nil {
				return fmt.Errorf("count records: %w", err)
			}
			fmt.Fprintf(out, "  Logs:    %d\n", logCount)
			fmt.Fprintf(out, "  Records: %d\n", recordCount)

			fmt.Fprintln(out, "\n=== FTS5 ===")
			if err := db.FTSIntegrity(); err != nil {
				fmt.Fprintf(out, "  Status: CORRUPT (%v)\n", err)
				fmt.Fprintf(out, "  Remove %s and run 'nbt index' to rebuild\n", cfg.DBPath)
			} else {
				fmt.Fprintln(out, "  Status: OK (integrity-check passed)")
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				sizeMB := float64(info.Size()) / 1024 / 1024
				fmt.Fprintf(out, "\n=== DB Size: %.1f MB ===\n", sizeMB)
			}

			return nil
		},
	}
}

func checkDir(w io.Writer, name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Fprintf(w, "  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Fprintf(w, "  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Fprintf(w, "  %s: %s (OK)\n", name, path)
	}
}
