package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cerebro/internal/config"
	"cerebro/internal/logger"
	"cerebro/internal/pipeline"
	"cerebro/internal/report"
	"cerebro/internal/types"
)

func newSimilarCmd() *cobra.Command {
	opts := &commonOptions{}
	var (
		outDir               string
		matchingLevel        int
		algorithm            string
		bitmapSize           int
		orientationInvariant bool
	)

	cmd := &cobra.Command{
		Use:   "similar [roots...]",
		Short: "Find visually similar images under one or more roots using perceptual hashing",
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
			flags.Mode = types.ModeSimilar
			flags.MatchingLevel = matchingLevel
			flags.SimilarityAlgorithm = types.SimilarityAlgorithm(algorithm)
			flags.BitmapSize = bitmapSize
			flags.OrientationInvariant = orientationInvariant

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

			fmt.Printf("found %d similarity group(s); report written to %s\n", len(result.Groups), reportPath)
			return nil
		},
	}

	addCommonFlags(cmd, opts)
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory to write the audit report into")
	cmd.Flags().IntVar(&matchingLevel, "matching-level", 60, "Similarity strictness, 1 (loosest) to 100 (strictest, near-identical only); 0 selects the default of 60")
	cmd.Flags().StringVar(&algorithm, "algorithm", string(types.AlgorithmPHash), "Perceptual hash algorithm: dhash or phash")
	cmd.Flags().IntVar(&bitmapSize, "bitmap-size", 64, "Working bitmap size for the perceptual hash")
	cmd.Flags().BoolVar(&orientationInvariant, "orientation-invariant", false, "Match images regardless of rotation or mirroring")
	return cmd
}
