// Command cerebro finds duplicate and visually-similar files, curates
// which copy survives, and cleans up the rest — behind a confirmation
// token gate whenever it is about to mutate the filesystem.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := &cobra.Command{
		Use:     "cerebro",
		Short:   "Find, curate, and clean up duplicate files",
		Version: version + " (" + commit + ")",
	}

	root.AddCommand(newScanCmd())
	root.AddCommand(newCleanCmd())
	root.AddCommand(newSimilarCmd())
	root.AddCommand(newGateCmd())
	root.AddCommand(newUndoCmd())

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}
