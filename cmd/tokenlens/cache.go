package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached scan results",
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached scan for the document",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProjectConfig()
		if err != nil {
			return err
		}
		service, cleanup, err := openService(cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer cleanup()

		n := service.ClearCache(cmd.Context())
		if flagFormat == "json" {
			return printJSON(map[string]int{"cleared": n})
		}
		fmt.Printf("cleared %d cached entries\n", n)
		return nil
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <page> [page...]",
	Short: "Drop cached scans covering the named pages",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadProjectConfig()
		if err != nil {
			return err
		}
		service, cleanup, err := openService(cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer cleanup()

		n := service.Invalidate(cmd.Context(), args)
		if flagFormat == "json" {
			return printJSON(map[string]any{"invalidated": n, "pages": args})
		}
		fmt.Printf("invalidated %d cached entries for %s\n", n, strings.Join(args, ", "))
		return nil
	},
}
