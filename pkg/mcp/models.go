package mcp

import (
	"context"
	"encoding/json"
)

// Version is the MCP protocol revision the gateway speaks.
const Version = "2025-03-26"

// Implementation describes the name and version of an MCP implementation.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type RootCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type SamplingCapabilities struct {
	// Empty object {} indicates support
}

type LoggingCapabilities struct {
	// Empty object {} indicates support
}

// ToolCapabilities defines the capabilities related to tools
type ToolCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// Use map for flexibility with experimental features
type ExperimentalCapabilities map[string]any

type ClientCapabilities struct {
	Roots        *RootCapabilities        `json:"roots,omitempty"`
	Sampling     *SamplingCapabilities    `json:"sampling,omitempty"`
	Experimental ExperimentalCapabilities `json:"experimental,omitempty"`
}

type ServerCapabilities struct {
	Logging      *LoggingCapabilities     `json:"logging,omitempty"`
	Tools        *ToolCapabilities        `json:"tools,omitempty"`
	Experimental ExperimentalCapabilities `json:"experimental,omitempty"`
}

// InitializeParams represents parameters for the initialize method
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is sent after receiving an initialize request from the
// client.
type InitializeResult struct {
	// The version of the Model Context Protocol that the server wants to use.
	// This may not match the version that the client requested. If the client
	// cannot support this version, it MUST disconnect.
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// ToolHandler is the callable body behind a registered tool. Arguments
// arrive already validated against the tool's input schema; the returned
// string becomes the textual protocol content.
type ToolHandler func(ctx context.Context, args map[string]any) (string, error)

// Tool describes one registered callable: a unique name, a human-readable
// description, and a JSON Schema for its arguments. The handler never
// crosses the wire.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
	Handler     ToolHandler     `json:"-"`
}

// CallToolParams carries the params of a tools/call request.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

type CallToolResult struct {
	Content []TextContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}
