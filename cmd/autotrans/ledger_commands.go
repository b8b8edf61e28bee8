package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"autotrans/internal/config"
	"autotrans/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and maintain the processing ledger",
	}
	ledgerCmd.AddCommand(newLedgerShowCommand(ctx))
	ledgerCmd.AddCommand(newLedgerClearCommand(ctx))
	ledgerCmd.AddCommand(newLedgerExportCommand(ctx))
	return ledgerCmd
}

// ledgerSelection is the parsed form of "<id>... | errors" arguments.
type ledgerSelection struct {
	ids    []int64
	errors bool
}

func (s ledgerSelection) empty() bool {
	return len(s.ids) == 0 && !s.errors
}

func parseLedgerSelection(args []string) (ledgerSelection, error) {
	var sel ledgerSelection
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if strings.EqualFold(arg, "errors") {
			sel.errors = true
			continue
		}
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return ledgerSelection{}, fmt.Errorf("invalid selector %q (expected an item id or 'errors')", arg)
		}
		sel.ids = append(sel.ids, id)
	}
	return sel, nil
}

func newLedgerShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show [ids...|errors]",
		Short: "Show ledger records (all, selected ids, or errors)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseLedgerSelection(args)
			if err != nil {
				return err
			}
			store, err := ctx.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			var records []ledger.Record
			seen := make(map[int64]struct{})
			add := func(rec ledger.Record) {
				if _, ok := seen[rec.ItemID]; ok {
					return
				}
				seen[rec.ItemID] = struct{}{}
				records = append(records, rec)
			}
			for _, rec := range store.Records() {
				if sel.empty() || (sel.errors && !rec.Succeeded()) {
					add(rec)
				}
			}
			for _, id := range sel.ids {
				rec, ok := store.Get(id)
				if !ok {
					return fmt.Errorf("no ledger record for item %d", id)
				}
				add(rec)
			}

			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No ledger records")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Item", "Group", "Status", "Retry", "Created", "Error"},
				ledgerRows(records),
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newLedgerClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <ids...|errors>",
		Short: "Remove ledger records so the items are considered again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseLedgerSelection(args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lock, err := ledger.AcquireLock(cfg.Paths.LedgerPath)
			if err != nil {
				return err
			}
			defer lock.Release()

			store, err := ctx.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if sel.errors {
				before := store.Len()
				if err := store.Clear(cmd.Context(), nil, true); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared %d error records\n", before-store.Len())
			}
			for _, id := range sel.ids {
				if sel.errors {
					if _, ok := store.Get(id); !ok {
						continue
					}
				}
				if err := store.Clear(cmd.Context(), &id, false); err != nil {
					return err
				}
				fmt.Fprintf(out, "Cleared item %d\n", id)
			}
			return nil
		},
	}
}

func newLedgerExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.xlsx>",
		Short: "Export the ledger to an XLSX workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openLedger(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			records := store.Records()
			if err := ledger.ExportXLSX(target, records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(records), target)
			return nil
		},
	}
}

func ledgerRows(records []ledger.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		created := "-"
		if rec.CreatedAt != nil {
			created = rec.CreatedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			strconv.FormatInt(rec.ItemID, 10),
			strconv.FormatInt(rec.GroupID, 10),
			rec.Status(),
			yesNo(rec.RetryEligible),
			created,
			rec.Error,
		})
	}
	return rows
}
