package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var ErrInvalidArguments = errors.New("invalid arguments")

// ToolArguments checks a tools/call argument object against the tool's
// input schema and returns the decoded argument map on success. Arguments
// not declared in the schema's properties are rejected outright, whether
// or not the schema itself forbids them.
func ToolArguments(schema, raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: arguments must be a JSON object", ErrInvalidArguments)
	}

	if len(schema) > 0 {
		schemaLoader := gojsonschema.NewBytesLoader(schema)
		documentLoader := gojsonschema.NewGoLoader(args)

		compiled, err := gojsonschema.NewSchema(schemaLoader)
		if err != nil {
			return nil, fmt.Errorf("internal schema error: %v", err)
		}

		result, err := compiled.Validate(documentLoader)
		if err != nil {
			return nil, fmt.Errorf("internal validation error: %v", err)
		}

		if !result.Valid() {
			var validationErrors []string
			for _, desc := range result.Errors() {
				validationErrors = append(validationErrors, desc.String())
			}
			return nil, fmt.Errorf("%w: %s", ErrInvalidArguments, strings.Join(validationErrors, "; "))
		}

		if err := rejectUnknown(schema, args); err != nil {
			return nil, err
		}
	}

	return args, nil
}

// rejectUnknown enforces the strict-arguments policy: every supplied key
// must be declared in the schema's properties.
func rejectUnknown(schema json.RawMessage, args map[string]any) error {
	var decl struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(schema, &decl); err != nil {
		return fmt.Errorf("internal schema error: %v", err)
	}

	var unknown []string
	for key := range args {
		if _, declared := decl.Properties[key]; !declared {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown arguments: %s", ErrInvalidArguments, strings.Join(unknown, ", "))
	}
	return nil
}
