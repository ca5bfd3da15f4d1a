package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tokenlens/tokenlens/pkg/audit"
	"github.com/tokenlens/tokenlens/pkg/extract"
)

var flagProgress bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the document and report extracted components",
	Long: `Scan walks the document's pages, extracts visual components with their
styling properties and caches the result for later find calls.`,
	RunE: runScan,
}

func init() {
	addScopeFlags(scanCmd)
	scanCmd.Flags().BoolVar(&flagProgress, "progress", false, "print per-page progress to stderr")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	service, cleanup, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := audit.Options{
		Scope:       scanScope(cfg),
		ForceRescan: flagForce,
	}
	if flagProgress {
		opts.OnProgress = printProgress
	}

	result, err := service.Scan(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if flagFormat == "json" {
		return printJSON(result)
	}
	printScanSummary(result)
	return nil
}

func printProgress(p extract.Progress) {
	if p.Phase != extract.PhaseScanning {
		return
	}
	fmt.Fprintf(os.Stderr, "  page %d/%d %s: %d components\n",
		p.CurrentPage, p.TotalPages, p.CurrentPageName, p.ComponentsFound)
}
