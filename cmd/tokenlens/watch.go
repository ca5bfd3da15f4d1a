package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tokenlens/tokenlens/pkg/audit"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the document and keep the scan cache warm",
	Long: `Watch scans the document once, then follows file changes: document
edits invalidate the affected cached scans and trigger a rescan, so a
persistent cache (cache_path in the config) stays warm for other
tokenlens processes. Stops on SIGINT or SIGTERM.`,
	RunE: runWatch,
}

func init() {
	addTokenFlags(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rescan := func() {
		result, err := service.Scan(ctx, audit.Options{})
		if err != nil {
			if ctx.Err() == nil {
				logger.Error("rescan failed", "error", err)
			}
			return
		}
		logger.Info("scan complete",
			"pages", len(result.Pages),
			"components", len(result.Records),
			"from_cache", result.FromCache)
	}
	rescan()

	watcher, err := startWatcher(ctx, service, cfg,
		func() { logger.Info("token sources changed") },
		rescan,
		logger)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Fprintln(os.Stderr, "watching for changes, ctrl-c to stop")
	<-ctx.Done()
	return nil
}
