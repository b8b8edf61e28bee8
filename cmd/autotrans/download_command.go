package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"autotrans/internal/batch"
	"autotrans/internal/catalog"
	"autotrans/internal/config"
)

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var collages bool
	var tokens int

	cmd := &cobra.Command{
		Use:   "download <file>",
		Short: "Download bundle files for listed items or collages",
		Long: "Reads one item URL per line (or one collage id/URL per line with --collages) and writes\n" +
			"the bundle files into paths.bundle_dir. Items larger than 450 MiB spend freeleech tokens first.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.BundleDir == "" {
				return errors.New("paths.bundle_dir must be set for downloads")
			}
			if err := cfg.RequireCatalog(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("tokens") {
				tokens = cfg.Batch.FreeleechTokens
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			lines, err := readLines(path)
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, cancel := signalContext(cmd)
			defer cancel()

			client := catalog.NewHTTPClient(cfg, catalog.WithLogger(logger))
			if err := client.Login(runCtx); err != nil {
				return err
			}
			controller := batch.New(cfg,
				batch.WithClient(client),
				batch.WithLogger(logger),
				batch.WithConsole(console(cmd)),
			)

			var picks []batch.Pick
			if collages {
				picks, err = controller.CollagePicks(runCtx, lines)
			} else {
				picks, err = controller.ListPicks(runCtx, lines)
			}
			if err != nil {
				return err
			}

			written, err := controller.Download(runCtx, picks, tokens, cfg.Paths.BundleDir)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d bundle files to %s\n", len(written), cfg.Paths.BundleDir)
			return err
		},
	}

	cmd.Flags().BoolVar(&collages, "collages", false, "Treat each line as a collage id or URL")
	cmd.Flags().IntVar(&tokens, "tokens", 0, "Freeleech tokens available (default: batch.freeleech_tokens)")
	return cmd
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list: %w", err)
	}
	return lines, nil
}
