// Command tokenlens finds design-token usage in design-document
// exports. It scans a document for visual components, matches them
// against token sources and reports where each token is used, either
// directly on the command line or as an MCP stdio server for AI
// agents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0-dev"

var (
	flagConfig    string
	flagDocument  string
	flagFormat    string
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "tokenlens",
	Short: "Find design-token usage in design documents",
	Long: `tokenlens scans a design-document JSON export for visual components,
matches their properties against design-token sources (DTCG JSON, YAML,
CSS custom properties, JS/TS theme objects) and reports where each token
is used.

Most commands read .tokenlens/config.yaml from the working directory;
flags override config values.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "project config path (default .tokenlens/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagDocument, "document", "", "design document JSON export")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format: text or json")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: json or text")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(findCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(versionCmd)
}

func validateFormat(format string) error {
	switch format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("invalid format %q: must be text or json", format)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the tokenlens version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tokenlens %s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
