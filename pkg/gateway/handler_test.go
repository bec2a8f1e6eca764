package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/heizer23/Atlas/pkg/auth"
	"github.com/heizer23/Atlas/pkg/codec"
	"github.com/heizer23/Atlas/pkg/mcp"
	"github.com/heizer23/Atlas/pkg/session"
)

type gatewayFixture struct {
	handler       *Handler
	fruitCalls    int
	explodeCalled bool
}

func newFixture(t *testing.T, verifier auth.Verifier) *gatewayFixture {
	t.Helper()
	fx := &gatewayFixture{}

	registry := mcp.NewToolRegistry()

	fruitColors := map[string]string{"apple": "red", "banana": "yellow", "mango": "orange"}
	fruitTool := mcp.Tool{
		Name:        "get_fruit_color",
		Description: "Return the typical color for a given fruit.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {"fruit": {"type": "string"}},
			"required": ["fruit"]
		}`),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			fx.fruitCalls++
			key := strings.ToLower(strings.TrimSpace(args["fruit"].(string)))
			if color, ok := fruitColors[key]; ok {
				return color, nil
			}
			return fmt.Sprintf("Unknown fruit '%s'. Known fruits: apple, banana, mango.", args["fruit"]), nil
		},
	}
	explodeTool := mcp.Tool{
		Name:        "explode",
		Description: "Always panics.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			fx.explodeCalled = true
			panic("secret internal state")
		},
	}
	failTool := mcp.Tool{
		Name:        "flaky",
		Description: "Always errors.",
		InputSchema: json.RawMessage(`{"type": "object", "properties": {}}`),
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			return "", fmt.Errorf("database password is hunter2")
		},
	}
	for _, tool := range []mcp.Tool{fruitTool, explodeTool, failTool} {
		if err := registry.Register(tool); err != nil {
			t.Fatalf("Failed to register %q: %v", tool.Name, err)
		}
	}

	sessions := session.NewManager(time.Minute)
	engine := NewEngine(registry, sessions, "Atlas MCP Gateway", "1.0.0")
	fx.handler = NewHandler(engine, verifier)
	return fx
}

func postEnvelope(t *testing.T, h *Handler, sessionID string, headers map[string]string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeRPC(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) codec.Response {
	t.Helper()
	body := rr.Body.String()
	// SSE responses carry the envelope on the data: line.
	if strings.Contains(rr.Header().Get("Content-Type"), "text/event-stream") {
		for _, line := range strings.Split(body, "\n") {
			if strings.HasPrefix(line, "data: ") {
				body = strings.TrimPrefix(line, "data: ")
				break
			}
		}
	}
	var resp codec.Response
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("Response is not a JSON-RPC envelope: %v (%q)", err, body)
	}
	return resp
}

func initialize(t *testing.T, h *Handler) string {
	t.Helper()
	rr := postEnvelope(t, h, "", nil, `{
		"jsonrpc": "2.0", "id": 1, "method": "initialize",
		"params": {"protocolVersion": "2024-11-05", "capabilities": {}, "clientInfo": {"name": "test", "version": "1.0"}}
	}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("initialize returned HTTP %d: %s", rr.Code, rr.Body.String())
	}
	sid := rr.Header().Get(SessionHeader)
	if sid == "" {
		t.Fatal("initialize must return a session id header")
	}
	return sid
}

func TestInitialize(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})

	rr := postEnvelope(t, fx.handler, "", nil, `{
		"jsonrpc": "2.0", "id": 1, "method": "initialize",
		"params": {"protocolVersion": "2024-11-05", "capabilities": {}, "clientInfo": {"name": "smoke-test", "version": "1.0"}}
	}`)

	resp := decodeResponse(t, rr)
	if resp.Error != nil {
		t.Fatalf("initialize failed: %v", resp.Error)
	}
	if string(resp.ID) != "1" {
		t.Errorf("Expected id 1 echoed, got %q", string(resp.ID))
	}

	result, _ := json.Marshal(resp.Result)
	var initResult mcp.InitializeResult
	if err := json.Unmarshal(result, &initResult); err != nil {
		t.Fatalf("Result is not an InitializeResult: %v", err)
	}
	if initResult.ServerInfo.Name != "Atlas MCP Gateway" {
		t.Errorf("Unexpected server name %q", initResult.ServerInfo.Name)
	}
	if initResult.ProtocolVersion != mcp.Version {
		t.Errorf("Expected protocol version %s, got %s", mcp.Version, initResult.ProtocolVersion)
	}
}

func TestInitialize_DistinctSessions(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})

	first := initialize(t, fx.handler)
	second := initialize(t, fx.handler)

	if first == second {
		t.Fatal("Two initialize calls must yield distinct session ids")
	}
	// Both stay independently valid.
	for _, sid := range []string{first, second} {
		rr := postEnvelope(t, fx.handler, sid, nil, `{"jsonrpc":"2.0","id":5,"method":"tools/list"}`)
		resp := decodeResponse(t, rr)
		if resp.Error != nil {
			t.Errorf("Session %s should be valid: %v", sid, resp.Error)
		}
	}
}

func TestCallBeforeInitialize(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})

	rr := postEnvelope(t, fx.handler, "", nil,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_fruit_color","arguments":{"fruit":"apple"}}}`)

	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.NOT_INITIALIZED {
		t.Fatalf("Expected not-initialized error, got %+v", resp)
	}
	if fx.fruitCalls != 0 {
		t.Error("Tool body must not run before initialize")
	}
}

func TestUnknownSession(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})

	rr := postEnvelope(t, fx.handler, "bogus-session-id", nil, `{"jsonrpc":"2.0","id":3,"method":"tools/list"}`)
	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.SESSION_NOT_FOUND {
		t.Fatalf("Expected session-not-found error, got %+v", resp)
	}
}

func TestToolsList_RegistrationOrder(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	rr := postEnvelope(t, fx.handler, sid, nil, `{"jsonrpc":"2.0","id":4,"method":"tools/list"}`)
	resp := decodeResponse(t, rr)
	if resp.Error != nil {
		t.Fatalf("tools/list failed: %v", resp.Error)
	}

	raw, _ := json.Marshal(resp.Result)
	var listed mcp.ListToolsResult
	if err := json.Unmarshal(raw, &listed); err != nil {
		t.Fatalf("Result is not a ListToolsResult: %v", err)
	}

	expected := []string{"get_fruit_color", "explode", "flaky"}
	if len(listed.Tools) != len(expected) {
		t.Fatalf("Expected %d tools, got %d", len(expected), len(listed.Tools))
	}
	for i, name := range expected {
		if listed.Tools[i].Name != name {
			t.Errorf("Position %d: expected %q, got %q", i, name, listed.Tools[i].Name)
		}
	}
}

func callFruit(t *testing.T, h *Handler, sid, fruit string) string {
	t.Helper()
	rr := postEnvelope(t, h, sid, nil, fmt.Sprintf(
		`{"jsonrpc":"2.0","id":99,"method":"tools/call","params":{"name":"get_fruit_color","arguments":{"fruit":%q}}}`, fruit))
	resp := decodeResponse(t, rr)
	if resp.Error != nil {
		t.Fatalf("tools/call failed: %v", resp.Error)
	}

	raw, _ := json.Marshal(resp.Result)
	var result mcp.CallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("Result is not a CallToolResult: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("Expected one text content item, got %+v", result.Content)
	}
	return result.Content[0].Text
}

func TestToolsCall_FruitColor(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	if got := callFruit(t, fx.handler, sid, "APPLE"); got != "red" {
		t.Errorf("get_fruit_color(APPLE) = %q, expected red", got)
	}
	if got := callFruit(t, fx.handler, sid, "banana"); got != "yellow" {
		t.Errorf("get_fruit_color(banana) = %q, expected yellow", got)
	}

	got := callFruit(t, fx.handler, sid, "kiwi")
	if !strings.Contains(got, "Unknown") || !strings.Contains(got, "apple, banana, mango") {
		t.Errorf("Expected unknown-fruit message with known list, got %q", got)
	}
}

func TestToolsCall_MissingRequiredArgument(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	rr := postEnvelope(t, fx.handler, sid, nil,
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"get_fruit_color","arguments":{}}}`)
	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.INVALID_PARAMS {
		t.Fatalf("Expected invalid params, got %+v", resp)
	}
	if fx.fruitCalls != 0 {
		t.Error("Tool body must not run on validation failure")
	}
}

func TestToolsCall_UnknownExtraArgument(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	rr := postEnvelope(t, fx.handler, sid, nil,
		`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"get_fruit_color","arguments":{"fruit":"apple","ripeness":"very"}}}`)
	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.INVALID_PARAMS {
		t.Fatalf("Expected strict rejection of unknown arguments, got %+v", resp)
	}
}

func TestToolsCall_UnknownTool(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	rr := postEnvelope(t, fx.handler, sid, nil,
		`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"no_such_tool","arguments":{}}}`)
	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.UNKNOWN_TOOL {
		t.Fatalf("Expected unknown-tool error, got %+v", resp)
	}
}

func TestToolsCall_PanicContained(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	rr := postEnvelope(t, fx.handler, sid, nil,
		`{"jsonrpc":"2.0","id":10,"method":"tools/call","params":{"name":"explode","arguments":{}}}`)
	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.TOOL_EXECUTION {
		t.Fatalf("Expected tool-execution error, got %+v", resp)
	}
	if !fx.explodeCalled {
		t.Fatal("Panic tool should have run")
	}
	if strings.Contains(resp.Error.Message, "secret internal state") {
		t.Error("Raw panic detail must never reach the caller")
	}
	if !strings.Contains(resp.Error.Message, "correlation id") {
		t.Errorf("Expected a correlation id in the message, got %q", resp.Error.Message)
	}
	data, ok := resp.Error.Data.(map[string]any)
	if !ok || data["correlationId"] == "" {
		t.Errorf("Expected correlationId in error data, got %v", resp.Error.Data)
	}
}

func TestToolsCall_ErrorMasked(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	rr := postEnvelope(t, fx.handler, sid, nil,
		`{"jsonrpc":"2.0","id":11,"method":"tools/call","params":{"name":"flaky","arguments":{}}}`)
	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.TOOL_EXECUTION {
		t.Fatalf("Expected tool-execution error, got %+v", resp)
	}
	if strings.Contains(resp.Error.Message, "hunter2") {
		t.Error("Tool fault detail must never reach the caller")
	}
}

func TestIDRoundTrip(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	// String, numeric, success and error paths all echo the request id.
	cases := []struct {
		body   string
		wantID string
	}{
		{`{"jsonrpc":"2.0","id":"req-a","method":"tools/list"}`, `"req-a"`},
		{`{"jsonrpc":"2.0","id":17,"method":"tools/list"}`, `17`},
		{`{"jsonrpc":"2.0","id":18,"method":"nope/nope"}`, `18`},
	}
	for _, tc := range cases {
		rr := postEnvelope(t, fx.handler, sid, nil, tc.body)
		resp := decodeResponse(t, rr)
		if string(resp.ID) != tc.wantID {
			t.Errorf("Expected id %s echoed, got %s", tc.wantID, string(resp.ID))
		}
	}
}

func TestNotification_NoResponse(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	rr := postEnvelope(t, fx.handler, sid, nil, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if rr.Code != http.StatusAccepted {
		t.Errorf("Expected 202 for notification, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("Notifications never receive a response body, got %q", rr.Body.String())
	}
}

func TestUnknownMethod(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	rr := postEnvelope(t, fx.handler, sid, nil, `{"jsonrpc":"2.0","id":12,"method":"resources/list"}`)
	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.METHOD_NOT_FOUND {
		t.Fatalf("Expected method-not-found, got %+v", resp)
	}
}

func TestParseError(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})

	rr := postEnvelope(t, fx.handler, "", nil, `{"jsonrpc": "2.0",`)
	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.PARSE_ERROR {
		t.Fatalf("Expected parse error envelope, got %+v", resp)
	}
	if string(resp.ID) != "null" {
		t.Errorf("Parse errors correlate to a null id, got %q", string(resp.ID))
	}
}

func TestTerminate(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})
	sid := initialize(t, fx.handler)

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	req.Header.Set(SessionHeader, sid)
	rr := httptest.NewRecorder()
	fx.handler.Terminate(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 on terminate, got %d", rr.Code)
	}

	// Any further request on the terminated session fails.
	postRR := postEnvelope(t, fx.handler, sid, nil, `{"jsonrpc":"2.0","id":13,"method":"tools/list"}`)
	resp := decodeResponse(t, postRR)
	if resp.Error == nil || resp.Error.Code != codec.SESSION_NOT_FOUND {
		t.Fatalf("Expected session-not-found after terminate, got %+v", resp)
	}
}

func TestTerminate_MissingHeader(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	rr := httptest.NewRecorder()
	fx.handler.Terminate(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without session header, got %d", rr.Code)
	}
}

func TestEventStreamFraming(t *testing.T) {
	fx := newFixture(t, auth.NoAuthVerifier{})

	rr := postEnvelope(t, fx.handler, "", map[string]string{
		"Accept": "application/json, text/event-stream",
	}, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`)

	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Fatalf("Expected event-stream content type, got %q", ct)
	}
	if !strings.Contains(rr.Body.String(), "data: ") {
		t.Fatalf("Expected data: framed body, got %q", rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp.Error != nil {
		t.Fatalf("initialize over SSE failed: %v", resp.Error)
	}
}

func TestSessionExpiry(t *testing.T) {
	registry := mcp.NewToolRegistry()
	sessions := session.NewManager(20 * time.Millisecond)
	engine := NewEngine(registry, sessions, "Atlas MCP Gateway", "1.0.0")
	h := NewHandler(engine, auth.NoAuthVerifier{})

	sid := initialize(t, h)

	// Valid before the idle timeout elapses.
	rr := postEnvelope(t, h, sid, nil, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	if resp := decodeResponse(t, rr); resp.Error != nil {
		t.Fatalf("Fresh session should be valid: %v", resp.Error)
	}

	time.Sleep(50 * time.Millisecond)

	rr = postEnvelope(t, h, sid, nil, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	resp := decodeResponse(t, rr)
	if resp.Error == nil || resp.Error.Code != codec.SESSION_EXPIRED {
		t.Fatalf("Expected session-expired error, got %+v", resp)
	}
}

// staticVerifier accepts exactly one token.
type staticVerifier struct {
	token string
	err   error
}

func (v staticVerifier) Verify(ctx context.Context, token string) (auth.Identity, error) {
	if v.err != nil {
		return auth.Identity{}, v.err
	}
	if token != v.token {
		return auth.Identity{}, auth.ErrInvalidCredential
	}
	return auth.Identity{Subject: "user-1", Issuer: "test", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestAuth_MissingToken(t *testing.T) {
	fx := newFixture(t, staticVerifier{token: "sekrit"})

	rr := postEnvelope(t, fx.handler, "", nil, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credential, got %d", rr.Code)
	}
}

func TestAuth_ValidToken(t *testing.T) {
	fx := newFixture(t, staticVerifier{token: "sekrit"})

	rr := postEnvelope(t, fx.handler, "", map[string]string{
		"Authorization": "Bearer sekrit",
	}, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"t","version":"1"}}}`)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200 with valid credential, got %d", rr.Code)
	}
	if rr.Header().Get(SessionHeader) == "" {
		t.Error("Expected a session id header")
	}
}

func TestAuth_UpstreamUnavailable(t *testing.T) {
	fx := newFixture(t, staticVerifier{err: auth.ErrUpstreamUnavailable})

	rr := postEnvelope(t, fx.handler, "", map[string]string{
		"Authorization": "Bearer anything",
	}, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 when the provider is unreachable, got %d", rr.Code)
	}
}
