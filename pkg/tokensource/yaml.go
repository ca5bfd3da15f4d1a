package tokensource

import (
	"fmt"

	"github.com/goccy/go-yaml"
)

// parseYAMLTokens converts a YAML token document to JSON and reuses the
// DTCG walk, so both formats share group, $type and alias semantics.
func parseYAMLTokens(data []byte) ([]rawToken, error) {
	j, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return parseDTCG(j)
}
