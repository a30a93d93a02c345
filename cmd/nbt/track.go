package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/nbtrack/internal/daemon"
	"github.com/Zuo-Peng/nbtrack/internal/record"
)

func trackCmd() *cobra.Command {
	var notebook, output, format string
	var jsonOut, once bool
	var debounce float64

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Watch a notebook and append every changed cell to a lineage log",
		Long: `Watch a notebook document and append one record per changed code cell to
an append-only lineage log. A pass runs at startup and then on every save,
with saves inside the debounce window ignored. Stop with Ctrl-C or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			// flags override config only when given
			if !cmd.Flags().Changed("format") {
				format = cfg.Format
			}
			if jsonOut {
				format = "jsonl"
			}
			f, err := record.ParseFormat(format)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = cfg.Debounce
			}
			if debounce < 0 {
				return fmt.Errorf("debounce must be >= 0, got %v", debounce)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return daemon.Run(ctx, daemon.Options{
				NotebookPath: notebook,
				OutputPath:   output,
				Format:       f,
				Debounce:     time.Duration(debounce * float64(time.Second)),
				Once:         once,
				Logger:       log,
			})
		},
	}

	cmd.Flags().StringVarP(&notebook, "notebook", "n", "", "Notebook (.ipynb) to watch")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Lineage log to append to")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write JSON Lines (same as --format jsonl)")
	cmd.Flags().StringVar(&format, "format", "text", "Log format: text or jsonl")
	cmd.Flags().Float64Var(&debounce, "debounce", 0.5, "Seconds during which further saves are ignored")
	cmd.Flags().BoolVar(&once, "once", false, "Take a single snapshot and exit")
	_ = cmd.MarkFlagRequired("notebook")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
