package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/null-create/logger"

	"github.com/heizer23/Atlas/pkg/auth"
	"github.com/heizer23/Atlas/pkg/codec"
	"github.com/heizer23/Atlas/pkg/mcp"
	"github.com/heizer23/Atlas/pkg/session"
	"github.com/heizer23/Atlas/pkg/util"
)

// SessionHeader carries the opaque session identifier. The server sets it
// on the initialize response; clients echo it on every later request.
const SessionHeader = "Mcp-Session-Id"

// Handler is the transport adapter: it binds the protocol engine to the
// HTTP endpoint, owning header extraction, authentication, and response
// framing.
type Handler struct {
	engine   *Engine
	verifier auth.Verifier
	log      *logger.Logger
}

func NewHandler(engine *Engine, verifier auth.Verifier) *Handler {
	return &Handler{
		engine:   engine,
		verifier: verifier,
		log:      logger.NewLogger("GATEWAY", uuid.NewString()),
	}
}

// ServeRPC handles POSTed JSON-RPC envelopes.
func (h *Handler) ServeRPC(w http.ResponseWriter, r *http.Request) {
	enc := codec.NegotiateEncoding(r.Header.Get("Accept"))

	identity, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	req, rpcErr := codec.ParseRequest(r.Body)
	if rpcErr != nil {
		h.writeResponse(w, enc, codec.NewErrorResponse(nil, rpcErr))
		return
	}

	if req.IsNotification() {
		// Notifications never receive a response envelope.
		if sid := r.Header.Get(SessionHeader); sid != "" {
			h.engine.Sessions().Touch(sid)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if req.Method == "initialize" {
		h.handleInitialize(w, enc, identity, req)
		return
	}

	// Everything else runs inside an established session.
	sid := r.Header.Get(SessionHeader)
	if sid == "" {
		h.writeResponse(w, enc, codec.NewErrorResponse(req.ID,
			codec.NewError(codec.NOT_INITIALIZED, "method '"+req.Method+"' requires an initialized session")))
		return
	}

	if _, err := h.engine.Sessions().Get(sid); err != nil {
		h.writeResponse(w, enc, codec.NewErrorResponse(req.ID, sessionError(err)))
		return
	}
	h.engine.Sessions().Touch(sid)
	w.Header().Set(SessionHeader, sid)

	switch req.Method {
	case "ping":
		h.writeResponse(w, enc, codec.NewResponse(req.ID, struct{}{}))
	case "tools/list":
		h.writeResponse(w, enc, codec.NewResponse(req.ID, h.engine.ListTools()))
	case "tools/call":
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			h.writeResponse(w, enc, codec.NewErrorResponse(req.ID,
				codec.NewError(codec.INVALID_PARAMS, "tools/call requires a tool name")))
			return
		}
		result, rpcErr := h.engine.CallTool(r.Context(), params)
		if rpcErr != nil {
			h.writeResponse(w, enc, codec.NewErrorResponse(req.ID, rpcErr))
			return
		}
		h.writeResponse(w, enc, codec.NewResponse(req.ID, result))
	default:
		h.writeResponse(w, enc, codec.NewErrorResponse(req.ID,
			codec.NewError(codec.METHOD_NOT_FOUND, "")))
	}
}

// Terminate handles DELETE on the endpoint: explicit session close.
func (h *Handler) Terminate(w http.ResponseWriter, r *http.Request) {
	sid := r.Header.Get(SessionHeader)
	if sid == "" {
		util.WriteError(w, http.StatusBadRequest, "missing "+SessionHeader+" header")
		return
	}
	h.engine.Terminate(sid)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleInitialize(w http.ResponseWriter, enc codec.Encoding, identity auth.Identity, req *codec.Request) {
	var params mcp.InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			h.writeResponse(w, enc, codec.NewErrorResponse(req.ID,
				codec.NewError(codec.INVALID_PARAMS, "malformed initialize params")))
			return
		}
	}

	result, sess := h.engine.Initialize(identity, params)
	w.Header().Set(SessionHeader, sess.ID)
	h.writeResponse(w, enc, codec.NewResponse(req.ID, result))
}

// authenticate resolves the bearer credential before anything reaches the
// engine. Returns false after writing the HTTP-level error response.
func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	token := auth.ExtractBearerToken(r.Header.Get("Authorization"))

	identity, err := h.verifier.Verify(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUpstreamUnavailable) {
			h.log.Info("identity provider unreachable: %v", err)
			util.WriteError(w, http.StatusServiceUnavailable, "identity provider unavailable, retry later")
			return auth.Identity{}, false
		}
		util.WriteError(w, http.StatusUnauthorized, err.Error())
		return auth.Identity{}, false
	}
	return identity, true
}

func (h *Handler) writeResponse(w http.ResponseWriter, enc codec.Encoding, resp *codec.Response) {
	if err := codec.WriteResponse(w, enc, resp); err != nil {
		h.log.Info("failed to write response: %v", err)
	}
}

func sessionError(err error) *codec.Error {
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		return codec.NewError(codec.SESSION_EXPIRED, "")
	default:
		return codec.NewError(codec.SESSION_NOT_FOUND, "")
	}
}
