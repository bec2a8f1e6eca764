package mcp

import (
	"errors"
	"fmt"

	"github.com/heizer23/Atlas/pkg/validate"
)

var (
	ErrDuplicateTool = errors.New("tool name already registered")
	ErrUnknownTool   = errors.New("tool not found")
)

// ToolRegistry maps tool names to their descriptors. It is populated once
// at startup and read-only afterward, so lookups need no locking.
type ToolRegistry struct {
	tools map[string]*Tool
	order []string
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry. The descriptive text is screened
// for hidden unicode so a compromised tool module cannot smuggle prompt
// injections into tools/list output.
func (tr *ToolRegistry) Register(tool Tool) error {
	if tool.Name == "" {
		return errors.New("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool '%s' has no handler", tool.Name)
	}
	if _, exists := tr.tools[tool.Name]; exists {
		return fmt.Errorf("%w: '%s'", ErrDuplicateTool, tool.Name)
	}
	if detections := validate.DetectHiddenUnicode(tool.Description); len(detections) > 0 {
		return fmt.Errorf("tool '%s': %d hidden characters detected in description", tool.Name, len(detections))
	}

	tr.tools[tool.Name] = &tool
	tr.order = append(tr.order, tool.Name)
	return nil
}

// Resolve returns the descriptor registered under name.
func (tr *ToolRegistry) Resolve(name string) (*Tool, error) {
	tool, exists := tr.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownTool, name)
	}
	return tool, nil
}

// List returns all registered tools in registration order, so repeated
// tools/list responses are reproducible.
func (tr *ToolRegistry) List() []Tool {
	tools := make([]Tool, 0, len(tr.order))
	for _, name := range tr.order {
		tools = append(tools, *tr.tools[name])
	}
	return tools
}
