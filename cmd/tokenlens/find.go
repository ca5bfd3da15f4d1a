package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tokenlens/tokenlens/pkg/audit"
)

const maxSuggestions = 5

var findCmd = &cobra.Command{
	Use:   "find <token-path>",
	Short: "Find where a design token is used in the document",
	Long: `Find scans the document (or reuses a cached scan) and matches every
extracted component against the named token. The token is looked up in
the configured token sources by its dot-separated path, for example
color.primary.500.`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	addScopeFlags(findCmd)
	addTokenFlags(findCmd)
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	set, _, err := loadTokenSet(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if set == nil {
		return errNoTokenSources()
	}

	tok, ok := set.Find(args[0])
	if !ok {
		if near := set.FindPrefix(args[0]); len(near) > 0 {
			names := make([]string, 0, maxSuggestions)
			for _, n := range near {
				if len(names) == maxSuggestions {
					break
				}
				names = append(names, n.Name())
			}
			return fmt.Errorf("token %q not found; close matches: %s", args[0], strings.Join(names, ", "))
		}
		return fmt.Errorf("token %q not found", args[0])
	}

	service, cleanup, err := openService(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	opts := audit.Options{
		Scope:       scanScope(cfg),
		ForceRescan: flagForce,
	}
	// Without an explicit category, scanning the token's own category
	// is enough to find every possible match.
	if strings.TrimSpace(flagCategory) == "" {
		opts.Scope.TokenCategory = tok.Category()
	}

	result, err := service.FindUsages(cmd.Context(), tok, opts)
	if err != nil {
		return err
	}

	if flagFormat == "json" {
		return printJSON(result)
	}
	printUsageResult(result)
	return nil
}
