package codec

import (
	"encoding/json"
	"errors"
	"io"
)

const JSONRPCVersion string = "2.0"

// Request is a single JSON-RPC 2.0 envelope. ID is kept raw so the
// response can echo it byte-for-byte; a missing or null ID marks the
// envelope as a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request expects no response.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

func NewResponse(id json.RawMessage, result any) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  result,
	}
}

func NewErrorResponse(id json.RawMessage, rpcErr *Error) *Response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   rpcErr,
	}
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// NewError builds an error object, falling back to the standard message
// for the code when none is given.
func NewError(code int, message string) *Error {
	if message == "" {
		message = rpcErrorMessages[code]
	}
	return &Error{Code: code, Message: message}
}

// JSON-RPC 2.0 standard error codes
const (
	PARSE_ERROR      = -32700
	INVALID_REQUEST  = -32600
	METHOD_NOT_FOUND = -32601
	INVALID_PARAMS   = -32602
	INTERNAL_ERROR   = -32603
)

// Gateway error codes (implementation-reserved -32000..-32099 range)
const (
	NOT_INITIALIZED   = -32000
	SESSION_EXPIRED   = -32001
	SESSION_NOT_FOUND = -32002
	UNKNOWN_TOOL      = -32010
	TOOL_EXECUTION    = -32011
)

var rpcErrorMessages = map[int]string{
	PARSE_ERROR:       "Parse error",
	INVALID_REQUEST:   "Invalid Request",
	METHOD_NOT_FOUND:  "Method not found",
	INVALID_PARAMS:    "Invalid params",
	INTERNAL_ERROR:    "Internal error",
	NOT_INITIALIZED:   "Session not initialized",
	SESSION_EXPIRED:   "Session expired",
	SESSION_NOT_FOUND: "Session not found",
	UNKNOWN_TOOL:      "Unknown tool",
	TOOL_EXECUTION:    "Tool execution failed",
}

var (
	errInvalidVersion = errors.New("invalid jsonrpc version")
	errMissingMethod  = errors.New("missing method")
)

// ParseRequest decodes one envelope from the request body. Malformed JSON
// maps to PARSE_ERROR, a structurally bad envelope to INVALID_REQUEST.
func ParseRequest(body io.Reader) (*Request, *Error) {
	var req Request
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, NewError(PARSE_ERROR, "")
	}
	if req.JSONRPC != JSONRPCVersion {
		return nil, NewError(INVALID_REQUEST, errInvalidVersion.Error())
	}
	if req.Method == "" {
		return nil, NewError(INVALID_REQUEST, errMissingMethod.Error())
	}
	return &req, nil
}
