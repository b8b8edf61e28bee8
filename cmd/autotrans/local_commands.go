package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"autotrans/internal/batch"
	"autotrans/internal/config"
	"autotrans/internal/format"
)

func newLocalCommand(ctx *commandContext) *cobra.Command {
	var formatName string

	cmd := &cobra.Command{
		Use:   "local <input> <output>",
		Short: "Transcode one local folder without the catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := format.Parse(formatName)
			if err != nil {
				return err
			}
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			output, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			controller, err := localController(ctx, cmd)
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			tc, err := controller.Local(runCtx, input, output, target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Transcoded %d tracks to %s\n", len(tc.Tracks), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatName, "format", "f", format.FLAC16.Name, "Output format")
	return cmd
}

func newTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test <folders...>",
		Short: "Validate source folders and report their resample decision",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			folders := make([]string, 0, len(args))
			for _, arg := range args {
				folder, err := config.ExpandPath(arg)
				if err != nil {
					return err
				}
				folders = append(folders, folder)
			}
			controller, err := localController(ctx, cmd)
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			results, err := controller.Test(runCtx, folders)
			printTestResults(cmd, results)
			return err
		},
	}
}

func localController(ctx *commandContext, cmd *cobra.Command) (*batch.Controller, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	return batch.New(cfg, batch.WithLogger(logger), batch.WithConsole(console(cmd))), nil
}

func printTestResults(cmd *cobra.Command, results []batch.TestResult) {
	if len(results) == 0 {
		return
	}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Folder,
			strconv.Itoa(len(r.Transcode.Tracks)),
			r.Transcode.Global.String(),
			strconv.Itoa(r.Transcode.ValidLogs),
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"Folder", "Tracks", "Resample", "Valid logs"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight},
	))
}
