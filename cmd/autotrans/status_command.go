package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"autotrans/internal/deps"
	"autotrans/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show directory, tool, catalog and ledger readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, r := range preflight.RunAll(cmd.Context(), cfg) {
				rows = append(rows, []string{r.Name, passLabel(r.Passed), r.Detail})
			}
			if cfg.Catalog.Endpoint == "" {
				r := preflight.CheckCatalogFromConfig(cmd.Context(), cfg)
				rows = append(rows, []string{r.Name, passLabel(r.Passed), r.Detail})
			}

			statuses := preflight.CheckSystemDeps(cfg)
			for _, s := range statuses {
				label := passLabel(s.Available)
				if !s.Available && s.Optional {
					label = "optional"
				}
				detail := s.Path
				if !s.Available {
					detail = fmt.Sprintf("%s (%s)", s.Description, s.Detail)
				}
				rows = append(rows, []string{s.Name, label, detail})
			}

			store, err := ctx.openLedger(cmd.Context())
			if err != nil {
				rows = append(rows, []string{"Ledger", "fail", err.Error()})
			} else {
				snap := preflight.SnapshotLedger(store)
				store.Close()
				rows = append(rows, []string{"Ledger", "ok", snap.Detail()})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Check", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			if missing := deps.Missing(statuses); len(missing) > 0 {
				fmt.Fprintf(out, "%d required tools missing\n", len(missing))
			}
			return nil
		},
	}
}

func passLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
