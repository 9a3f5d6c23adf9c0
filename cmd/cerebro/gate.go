package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cerebro/internal/gate"
)

// newGateCmd exposes the deletion gate's issue/status/clear operations
// directly, for scripting a clean run without going through its
// issue-then-re-invoke prompt.
func newGateCmd() *cobra.Command {
	var outDir string
	var ttl int

	root := &cobra.Command{
		Use:   "gate",
		Short: "Inspect or manage the deletion confirmation token",
	}

	issue := &cobra.Command{
		Use:   "issue [reason]",
		Short: "Issue a new confirmation token",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason := "manual issue"
			if len(args) == 1 {
				reason = args[0]
			}
			g := gate.New(gate.Config{Enabled: true, RequireToken: true, TokenTTLSeconds: ttl, AllowPlanUUIDToken: true})
			token, err := g.IssueToken(reason)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = "."
			}
			if err := savePendingToken(outDir, token, time.Now().Add(time.Duration(ttl)*time.Second), reason); err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	issue.Flags().IntVar(&ttl, "ttl", 900, "Token time-to-live, in seconds")
	issue.Flags().StringVar(&outDir, "out-dir", ".", "Directory the token sidecar file is written to")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether a pending confirmation token exists and is still valid",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = "."
			}
			pt, ok := loadPendingToken(outDir)
			if !ok {
				fmt.Println("no pending token")
				return nil
			}
			valid := time.Now().Before(pt.Expires)
			fmt.Printf("token=%s valid=%v expires=%s reason=%q\n", pt.Token, valid, pt.Expires.Format(time.RFC3339), pt.Reason)
			return nil
		},
	}
	status.Flags().StringVar(&outDir, "out-dir", ".", "Directory the token sidecar file is read from")

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Discard any pending confirmation token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir == "" {
				outDir = "."
			}
			clearPendingToken(outDir)
			return nil
		},
	}
	clear.Flags().StringVar(&outDir, "out-dir", ".", "Directory the token sidecar file is removed from")

	root.AddCommand(issue, status, clear)
	return root
}
