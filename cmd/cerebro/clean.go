package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cerebro/internal/config"
	"cerebro/internal/gate"
	"cerebro/internal/logger"
	"cerebro/internal/pipeline"
	"cerebro/internal/report"
	"cerebro/internal/types"
)

func newCleanCmd() *cobra.Command {
	opts := &commonOptions{}
	var (
		outDir         string
		policy         string
		token          string
		requireToken   bool
		tokenTTL       int
		allowHardlinks bool
	)

	cmd := &cobra.Command{
		Use:   "clean [roots...]",
		Short: "Find duplicate files and remove non-survivors under a deletion policy",
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
			flags.Mode = types.ModeDelete
			flags.DeletionPolicy = types.DeletionPolicy(policy)
			flags.ConfirmationToken = token
			flags.AllowHardlinkDeletes = allowHardlinks

			req, err := config.Load(opts.configFile, flags)
			if err != nil {
				return err
			}

			if outDir == "" {
				outDir = "."
			}

			gateCfg := gate.DefaultConfig()
			gateCfg.RequireToken = requireToken
			gateCfg.TokenTTLSeconds = tokenTTL
			g := gate.New(gateCfg)

			if requireToken && req.DeletionPolicy != types.PolicyDryRun {
				if token == "" {
					issued, err := g.IssueToken("clean " + filepath.Clean(args[0]))
					if err != nil {
						return err
					}
					if err := savePendingToken(outDir, issued, time.Now().Add(time.Duration(tokenTTL)*time.Second), "clean "+filepath.Clean(args[0])); err != nil {
						return err
					}
					fmt.Fprintf(os.Stderr, "issued confirmation token %s (re-run with --token %s to proceed)\n", issued, issued)
					return nil
				}
				if pt, ok := loadPendingToken(outDir); ok {
					g.Seed(pt.Token, pt.Expires, pt.Reason)
				}
			}

			c, stop := cancelFromInterrupt()
			defer stop()

			emit := progressEmitter(opts.noProgress)
			p := pipeline.New(req, c, emit, opts.cacheFile, g)
			result, err := p.Run()
			if err != nil {
				return err
			}

			clearPendingToken(outDir)
			scanID := newScanID()
			reportPath := filepath.Join(outDir, fmt.Sprintf("cerebro-report-%s.json", scanID))
			stats := report.BuildStats(result.Groups, result.Plan, result.Execution)
			if err := report.WriteJSON(reportPath, scanID, req, stats, result.Groups, result.Plan, report.NowUnixSeconds()); err != nil {
				return err
			}
			if _, _, err := report.WriteCleanupScripts(outDir, scanID, result.Plan); err != nil {
				return err
			}

			if result.Execution != nil {
				if err := persistTrashAction(outDir, scanID, result.Execution.Trash); err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "deleted %d item(s), %d failure(s); report written to %s\n",
					result.Execution.DeletedCount, result.Execution.FailedCount, reportPath)
			} else {
				fmt.Fprintf(os.Stdout, "report written to %s\n", reportPath)
			}
			return nil
		},
	}

	addCommonFlags(cmd, opts)
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "Directory to write the audit report and cleanup scripts into")
	cmd.Flags().StringVar(&policy, "policy", string(types.PolicyDryRun), "Deletion policy: MOVE_TO_TRASH, DELETE_PERMANENTLY, or DRY_RUN")
	cmd.Flags().StringVar(&token, "token", "", "Confirmation token issued by a prior run of this command")
	cmd.Flags().BoolVar(&requireToken, "require-token", true, "Require a confirmation token before mutating the filesystem")
	cmd.Flags().IntVar(&tokenTTL, "token-ttl", types.DefaultTokenTTLSeconds, "Confirmation token time-to-live, in seconds")
	cmd.Flags().BoolVar(&allowHardlinks, "allow-hardlink-deletes", false, "Allow deleting files with more than one hardlink")
	return cmd
}

// persistTrashAction writes the move log for a MOVE_TO_TRASH run to disk
// so a later `cerebro undo` invocation can reverse it.
func persistTrashAction(outDir, scanID string, action types.TrashAction) error {
	if len(action.Moved) == 0 {
		return nil
	}
	data, err := json.MarshalIndent(action, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(outDir, fmt.Sprintf("cerebro-trash-%s.json", scanID))
	return os.WriteFile(path, data, 0o644)
}
