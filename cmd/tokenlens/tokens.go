package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tokenlens/tokenlens/pkg/token"
)

var (
	flagPrefix    string
	flagTokenType string
)

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List tokens parsed from the configured sources",
	RunE:  runTokens,
}

func init() {
	addTokenFlags(tokensCmd)
	tokensCmd.Flags().StringVar(&flagPrefix, "prefix", "", "only tokens under this dot-path prefix")
	tokensCmd.Flags().StringVar(&flagTokenType, "type", "", "only tokens of this type, for example color or dimension")
}

func runTokens(cmd *cobra.Command, args []string) error {
	cfg, err := loadProjectConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	set, res, err := loadTokenSet(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if set == nil {
		return errNoTokenSources()
	}

	list := set.FindPrefix(flagPrefix)
	if flagTokenType != "" {
		// FindPrefix can return the set's own backing slice; filter into
		// a fresh one.
		var filtered []token.DesignToken
		for _, t := range list {
			if string(t.Type) == flagTokenType {
				filtered = append(filtered, t)
			}
		}
		list = filtered
	}

	if flagFormat == "json" {
		if list == nil {
			list = []token.DesignToken{}
		}
		return printJSON(map[string]any{
			"tokens":     list,
			"total":      len(list),
			"unresolved": res.Unresolved,
			"issues":     res.Issues,
		})
	}

	printTokenTable(list)
	fmt.Printf("\n%d tokens from %d files\n", len(list), len(res.Files))
	for _, u := range res.Unresolved {
		fmt.Fprintf(os.Stderr, "warning: %s\n", u.Error())
	}
	for _, issue := range res.Issues {
		if issue.Severity == token.SeverityError {
			fmt.Fprintf(os.Stderr, "warning: %s\n", issue)
		}
	}
	return nil
}
