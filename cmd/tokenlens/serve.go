package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/tokenlens/tokenlens/pkg/mcp"
	"github.com/tokenlens/tokenlens/pkg/observability"
)

var (
	flagCallLog     string
	flagMetricsAddr string
	flagWatch       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve MCP tools over stdio",
	Long: `Serve runs the MCP server on stdin/stdout for AI agents. The server
exposes scan, find and lookup tools over the configured document and
token sources. Run "tokenlens setup" to register it with installed
agents.`,
	RunE: runServe,
}

func init() {
	addTokenFlags(serveCmd)
	serveCmd.Flags().StringVar(&flagCallLog, "call-log", "", "JSONL tool-call log path")
	serveCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics and health on this address")
	serveCmd.Flags().BoolVar(&flagWatch, "watch", false, "reload document and token changes while serving")
}

func runServe(cmd *cobra.Command, args []string) error {
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

	set, _, err := loadTokenSet(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if set == nil {
		logger.Warn("no token sources configured; token tools will report this to callers")
	}

	srv, err := mcpserver.NewServer(service, set, mcpserver.Config{
		CallLogPath: resolveCallLog(cfg),
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	if addr := resolveMetricsAddr(cfg); addr != "" {
		obs := observability.NewServer(addr, service, logger)
		if err := obs.Start(cmd.Context()); err != nil {
			return err
		}
		defer func() {
			ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			obs.Stop(ctx)
		}()
	}

	if flagWatch {
		reload := func() {
			fresh, _, err := loadTokenSet(context.Background(), cfg, logger)
			if err != nil {
				logger.Error("token reload failed", "error", err)
				return
			}
			if fresh == nil {
				return
			}
			srv.UpdateTokens(fresh)
			logger.Info("token sources reloaded", "tokens", fresh.Len())
		}
		watcher, err := startWatcher(cmd.Context(), service, cfg, reload, nil, logger)
		if err != nil {
			return err
		}
		defer watcher.Stop()
	}

	logger.Info("mcp server listening on stdio",
		"document", service.Stats().Document,
		"watch", flagWatch)
	return srv.ServeStdio()
}
