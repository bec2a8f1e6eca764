// Package fruit holds the gateway's smoke-test tool. It has no external
// dependencies, which makes it useful for verifying a deployment end to
// end before real application tools are wired in.
package fruit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/heizer23/Atlas/pkg/mcp"
)

var fruitColors = map[string]string{
	"apple":  "red",
	"banana": "yellow",
	"mango":  "orange",
}

var inputSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"fruit": {"type": "string", "description": "Name of the fruit"}
	},
	"required": ["fruit"]
}`)

// Tool returns the get_fruit_color descriptor.
func Tool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_fruit_color",
		Description: "Return the typical color for a given fruit. Supported fruits: apple, banana, mango.",
		InputSchema: inputSchema,
		Handler:     getFruitColor,
	}
}

func getFruitColor(ctx context.Context, args map[string]any) (string, error) {
	raw, ok := args["fruit"].(string)
	if !ok {
		return "", fmt.Errorf("fruit argument must be a string")
	}

	key := strings.ToLower(strings.TrimSpace(raw))
	color, found := fruitColors[key]
	if !found {
		known := make([]string, 0, len(fruitColors))
		for name := range fruitColors {
			known = append(known, name)
		}
		sort.Strings(known)
		return fmt.Sprintf("Unknown fruit '%s'. Known fruits: %s.", raw, strings.Join(known, ", ")), nil
	}
	return color, nil
}
