package codec

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Encoding selects how a response envelope is framed on the wire.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingEventStream
)

// NegotiateEncoding picks the response framing from the client's Accept
// header. Clients that declare text/event-stream get SSE framing; everyone
// else gets a plain JSON object.
func NegotiateEncoding(accept string) Encoding {
	if strings.Contains(accept, "text/event-stream") {
		return EncodingEventStream
	}
	return EncodingJSON
}

// WriteResponse serializes one response envelope using the negotiated
// encoding. Event-stream framing emits a single `data:` line terminated by
// a blank line, matching what streamable HTTP clients parse.
func WriteResponse(w http.ResponseWriter, enc Encoding, resp *Response) error {
	switch enc {
	case EncodingEventStream:
		data, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		_, err = fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		return err
	default:
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(resp)
	}
}
