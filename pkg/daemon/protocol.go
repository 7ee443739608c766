// Package daemon runs the line-delimited JSON-RPC server every CLI
// invocation and long-lived client talks to over a Unix domain socket:
// one request per line in, one response per line out, every call routed
// through a single pkg/registry.Registry. There is no named-pipe
// transport; every platform uses a Unix domain socket.
package daemon

import (
	"encoding/json"

	"github.com/spacecore/spacecore/pkg/errors"
)

// Request is one line of client input.
type Request struct {
	// ID is echoed back on the matching Response so a client pipelining
	// multiple requests over the same connection can match them up.
	ID string `json:"id"`

	// Method is the registry method string, e.g. "action:files.copy.input.v1".
	Method string `json:"method"`

	// LibraryID scopes the call for ScopeLibrary methods; empty for
	// ScopeCore methods.
	LibraryID string `json:"library_id,omitempty"`

	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one line of server output, a reply to exactly one Request.
type Response struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *WireError      `json:"error,omitempty"`
}

// WireError is the serializable form of a *errors.Error.
type WireError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Resource  string `json:"resource,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func toWireError(err error) *WireError {
	if cerr, ok := err.(*errors.Error); ok {
		return &WireError{Code: cerr.Code.String(), Message: cerr.Message, Resource: cerr.Resource, Retryable: cerr.Retryable}
	}
	return &WireError{Code: errors.ErrInternal.String(), Message: err.Error()}
}

// EventLine is one line of an event subscription stream, distinguished from
// a Response by carrying no ID: a connection that sent "events.subscribe"
// gets a final Response acknowledging the subscription, then a stream of
// EventLine values until it closes the connection.
type EventLine struct {
	Event json.RawMessage `json:"event"`
}

const subscribeMethod = "events.subscribe"
