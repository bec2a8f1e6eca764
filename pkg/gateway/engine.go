package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/null-create/logger"

	"github.com/heizer23/Atlas/pkg/auth"
	"github.com/heizer23/Atlas/pkg/codec"
	"github.com/heizer23/Atlas/pkg/mcp"
	"github.com/heizer23/Atlas/pkg/session"
	"github.com/heizer23/Atlas/pkg/validate"
)

// toolCallTimeout bounds a single tool invocation. Tools doing network or
// storage work observe it through their context.
const toolCallTimeout = 30 * time.Second

// Engine is the protocol state machine. It resolves methods against the
// registry and session store; it never touches HTTP concerns.
type Engine struct {
	registry *mcp.ToolRegistry
	sessions *session.Manager
	info     mcp.Implementation
	log      *logger.Logger
}

func NewEngine(registry *mcp.ToolRegistry, sessions *session.Manager, name, version string) *Engine {
	return &Engine{
		registry: registry,
		sessions: sessions,
		info:     mcp.Implementation{Name: name, Version: version},
		log:      logger.NewLogger("PROTOCOL_ENGINE", uuid.NewString()),
	}
}

func (e *Engine) Sessions() *session.Manager { return e.sessions }

// Initialize creates a session bound to the verified identity and returns
// the negotiated server identity and capabilities.
func (e *Engine) Initialize(identity auth.Identity, params mcp.InitializeParams) (mcp.InitializeResult, session.Session) {
	sess := e.sessions.Create(identity, params.Capabilities, params.ProtocolVersion)

	result := mcp.InitializeResult{
		ProtocolVersion: mcp.Version,
		Capabilities: mcp.ServerCapabilities{
			Tools:   &mcp.ToolCapabilities{ListChanged: false},
			Logging: &mcp.LoggingCapabilities{},
		},
		ServerInfo: e.info,
	}
	return result, sess
}

// ListTools projects the registry in registration order.
func (e *Engine) ListTools() mcp.ListToolsResult {
	return mcp.ListToolsResult{Tools: e.registry.List()}
}

// CallTool resolves the named tool, validates the arguments against its
// schema, and invokes it. A tool fault never escapes raw: the caller gets
// a generic message plus a correlation id, the full detail goes to the
// operator log only.
func (e *Engine) CallTool(ctx context.Context, params mcp.CallToolParams) (mcp.CallToolResult, *codec.Error) {
	tool, err := e.registry.Resolve(params.Name)
	if err != nil {
		return mcp.CallToolResult{}, codec.NewError(codec.UNKNOWN_TOOL, err.Error())
	}

	args, err := validate.ToolArguments(tool.InputSchema, params.Arguments)
	if err != nil {
		return mcp.CallToolResult{}, codec.NewError(codec.INVALID_PARAMS, err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, toolCallTimeout)
	defer cancel()

	text, err := e.invoke(callCtx, tool, args)
	if err != nil {
		correlationID := uuid.NewString()
		e.log.Info("tool '%s' failed (correlation id %s): %v", tool.Name, correlationID, err)
		rpcErr := codec.NewError(codec.TOOL_EXECUTION, fmt.Sprintf("Tool execution failed (correlation id %s)", correlationID))
		rpcErr.Data = map[string]string{"correlationId": correlationID}
		return mcp.CallToolResult{}, rpcErr
	}

	return mcp.CallToolResult{
		Content: []mcp.TextContent{mcp.NewTextContent(text)},
	}, nil
}

// Terminate closes a session explicitly. Further requests on the same id
// fail with session-not-found.
func (e *Engine) Terminate(sessionID string) {
	e.sessions.Destroy(sessionID)
	e.log.Info("session %s terminated", sessionID)
}

// invoke runs the tool body with panic containment so a misbehaving tool
// cannot take the gateway down.
func (e *Engine) invoke(ctx context.Context, tool *mcp.Tool, args map[string]any) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic in tool '%s': %v", tool.Name, p)
		}
	}()
	return tool.Handler(ctx, args)
}
