package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tokenlens/tokenlens/pkg/audit"
	"github.com/tokenlens/tokenlens/pkg/token"
)

// printJSON writes v to stdout, indented. Every command's --format=json
// output goes through here.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printScanSummary(res *audit.ScanResult) {
	components := len(res.Records)
	if res.Report != nil {
		components = res.Report.ComponentsFound
	}
	fmt.Printf("scanned %d pages, %d components [category %s]\n",
		len(res.Pages), components, res.Category)

	if res.Report != nil {
		fmt.Printf("  %d nodes in %dms\n", res.Report.NodesScanned, res.Report.DurationMs)
		if res.Report.CappedPages > 0 {
			fmt.Printf("  %d pages hit the node cap; results there are partial\n", res.Report.CappedPages)
		}
		for _, e := range res.Report.Errors {
			fmt.Fprintf(os.Stderr, "warning: %s\n", e.Error())
		}
	}
	if res.FromCache {
		fmt.Println("  served from cache")
	}
}

func printUsageResult(res *audit.UsageResult) {
	fmt.Printf("%s = %s [%s]\n", res.Token.Name(), formatValue(res.Token.Value), res.Token.Category())

	if len(res.Matches) == 0 {
		fmt.Println("\nno usages found")
		return
	}

	for _, m := range res.Matches {
		rec := m.Component
		fmt.Printf("\n%s  (%s, page %s, confidence %.2f)\n",
			rec.Name, rec.Kind, rec.Page, m.Confidence)

		wLabel, wValue := 0, 0
		for _, d := range m.Matches {
			if len(d.PropertyLabel) > wLabel {
				wLabel = len(d.PropertyLabel)
			}
			if len(d.MatchedValue) > wValue {
				wValue = len(d.MatchedValue)
			}
		}
		for _, d := range m.Matches {
			fmt.Printf("    %-*s  %-*s  %.2f\n",
				wLabel, d.PropertyLabel, wValue, d.MatchedValue, d.Confidence)
		}
	}

	fmt.Printf("\n%d matching components", len(res.Matches))
	if res.FromCache {
		fmt.Print(" (scan served from cache)")
	}
	fmt.Println()
}

func printTokenTable(tokens []token.DesignToken) {
	if len(tokens) == 0 {
		fmt.Println("no tokens")
		return
	}

	wPath, wType, wValue := len("PATH"), len("TYPE"), len("VALUE")
	rows := make([][4]string, 0, len(tokens))
	for _, t := range tokens {
		row := [4]string{t.Name(), string(t.Type), formatValue(t.Value), t.Source}
		rows = append(rows, row)
		if len(row[0]) > wPath {
			wPath = len(row[0])
		}
		if len(row[1]) > wType {
			wType = len(row[1])
		}
		if len(row[2]) > wValue {
			wValue = len(row[2])
		}
	}

	fmt.Printf("%-*s  %-*s  %-*s  %s\n", wPath, "PATH", wType, "TYPE", wValue, "VALUE", "SOURCE")
	for _, row := range rows {
		fmt.Printf("%-*s  %-*s  %-*s  %s\n", wPath, row[0], wType, row[1], wValue, row[2], row[3])
	}
}

// formatValue renders a token value for table output. Composite values
// (typography groups, shadow lists) compact to JSON.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64, int, bool:
		return fmt.Sprintf("%v", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

