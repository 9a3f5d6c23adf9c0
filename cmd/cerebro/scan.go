package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cerebro/internal/config"
	"cerebro/internal/logger"
	"cerebro/internal/pipeline"
	"cerebro/internal/report"
	"cerebro/internal/types"
)

func newScanCmd() *cobra.Command {
	opts := &commonOptions{}
	var outDir string

	cmd := &cobra.Command{
		Use:   "scan [roots...]",
		Short: "Find duplicate files under one or more roots and write an audit report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			closer, err := logger.Setup(opts.verbose, opts.logFile)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			flags, err := opts.toRequest(cmd, args)
			if err != nil {
				return err
			}
			flags.Mode = types.ModeScan

			req, err := config.Load(opts.configFile, flags)
			if err != nil {
				return err
			}

			c, stop := cancelFromInterrupt()
			defer stop()

			emit := progressEmitter(opts.noProgress)
			p := pipeline.New(req, c, emit, opts.cacheFile, nil)
			result, err := p.Run()
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = "."
			}
			scanID := newScanID()
			reportPath := filepath.Join(outDir, fmt.Sprintf("cerebro-report-%s.json", scanID))
			stats := report.BuildStats(result.Groups, result.Plan, result.Execution)
			if err := report.WriteJSON(reportPath, scanID, req, stats, result.Groups, result.Plan, report.NowUnixSeconds()); err != nil {
				return err
			}

			fmt.Fprintf(os.Stdout, "found %d duplicate group(s); report written to %s\n", len(result.Groups), reportPath)
			return nil
		},
	}

	addCommonFlags(cmd, opts)
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory to write the audit report into")
	return cmd
}
