package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cerebro/internal/trash"
	"cerebro/internal/types"
)

func newUndoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo <trash-log.json>",
		Short: "Reverse a MOVE_TO_TRASH run from its persisted trash log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var action types.TrashAction
			if err := json.Unmarshal(data, &action); err != nil {
				return fmt.Errorf("parse trash log %s: %w", args[0], err)
			}

			ok, failed := trash.Undo(action)
			if !ok {
				return fmt.Errorf("undo failed for %d of %d item(s)", failed, len(action.Moved))
			}
			fmt.Printf("restored %d item(s)\n", len(action.Moved))
			return nil
		},
	}
	return cmd
}
