package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"autotrans/internal/batch"
	"autotrans/internal/catalog"
	"autotrans/internal/ledger"
	"autotrans/internal/preflight"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var batchSize int
	var media []string

	cmd := &cobra.Command{
		Use:   "run [urls...]",
		Short: "Transcode and publish missing formats of seeded or given releases",
		Long: "Without arguments, retries due ledger items and then walks the seeding feed until the batch is full.\n" +
			"With item URLs, processes exactly those items and ignores media, age and batch size limits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("batch") {
				cfg.Batch.Size = batchSize
			}
			if len(media) > 0 {
				cfg.Transcode.Media = normalizeMedia(media)
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if err := cfg.RequireCatalog(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			lock, err := ledger.AcquireLock(cfg.Paths.LedgerPath)
			if err != nil {
				if errors.Is(err, ledger.ErrLocked) {
					return fmt.Errorf("another autotrans run is active: %w", err)
				}
				return err
			}
			defer lock.Release()

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			if failed := failedChecks(preflight.RunAll(runCtx, cfg)); len(failed) > 0 {
				return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
			}

			store, err := ctx.openLedger(runCtx)
			if err != nil {
				return err
			}
			defer store.Close()

			client := catalog.NewHTTPClient(cfg, catalog.WithLogger(logger))
			if err := client.Login(runCtx); err != nil {
				return err
			}

			controller := batch.New(cfg,
				batch.WithClient(client),
				batch.WithLedger(store),
				batch.WithLogger(logger),
				batch.WithConsole(console(cmd)),
			)
			summary, runErr := controller.Run(runCtx, args)
			if summary != nil {
				printSummary(cmd.OutOrStdout(), summary)
			}
			return runErr
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch", "b", 0, "Maximum releases per run (0 for unbounded)")
	cmd.Flags().StringSliceVarP(&media, "media", "m", nil, "Allowed media (overrides transcode.media; repeatable)")
	return cmd
}

func normalizeMedia(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.ToLower(strings.TrimSpace(v)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func failedChecks(results []preflight.Result) []string {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	return failed
}

func printSummary(out io.Writer, summary *batch.Summary) {
	if len(summary.Outcomes) > 0 {
		rows := make([][]string, 0, len(summary.Outcomes))
		for _, o := range summary.Outcomes {
			rows = append(rows, []string{
				strconv.FormatInt(o.ItemID, 10),
				o.Name,
				string(o.Status),
				o.Reason,
			})
		}
		fmt.Fprintln(out, renderSpec(tableSpec{
			Title:   "Run " + summary.RunID,
			Headers: []string{"Item", "Release", "Status", "Reason"},
			Rows:    rows,
			Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		}))
	}
	fmt.Fprintf(out, "Considered %d, prepared %d, published %d, failed %d, dropped %d\n",
		summary.Considered,
		summary.Prepared,
		summary.Count(batch.StatusPublished),
		summary.Count(batch.StatusFailed),
		summary.Count(batch.StatusDropped),
	)
}
