// Package registry is the single entry point every external invocation
// flows through: the daemon's JSON-RPC server and the CLI's local
// shortcuts both resolve a method string to a handler through one
// Registry rather than each owning its own dispatch logic.
package registry

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/spacecore/spacecore/pkg/errors"
)

// Kind distinguishes a state-mutating call from a read-only one.
type Kind string

const (
	KindAction Kind = "action"
	KindQuery  Kind = "query"
)

// Scope says whether a method needs an active library context or can run
// against the core process state alone.
type Scope string

const (
	// ScopeCore methods need nothing beyond the process-wide Context.
	ScopeCore Scope = "core"
	// ScopeLibrary methods require RequestContext.LibraryID to be set.
	ScopeLibrary Scope = "library"
)

// Handler deserializes raw into its method's request type, performs the
// call, and returns a result that is itself serializable. Each handler
// owns its own request/response types; the registry only ever sees
// json.RawMessage in and `any` out.
type Handler func(ctx context.Context, rc *RequestContext, raw json.RawMessage) (any, error)

// entry is what Register stores for one method string.
type entry struct {
	method  string
	kind    Kind
	scope   Scope
	handler Handler
}

// Registry maps a stable method string (e.g. "action:files.copy.input.v1")
// to its handler. It is content-addressed by method string: replacing an
// already-registered handler for the same string is an error, mirroring
// spec's rule that a version suffix is the only supported way to evolve a
// wire shape.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]*entry
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{methods: make(map[string]*entry)}
}

// Register associates method with handler. It returns an error if method
// is already registered; callers that want "add a v2 and keep v1" should
// use a new method string, never overwrite one.
func (r *Registry) Register(method string, kind Kind, scope Scope, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.methods[method]; exists {
		return errors.AlreadyExists("registry method", method)
	}
	r.methods[method] = &entry{method: method, kind: kind, scope: scope, handler: handler}
	return nil
}

// MustRegister is Register for package init() blocks, where a collision
// is a programming error that should fail fast rather than surface at
// request time.
func (r *Registry) MustRegister(method string, kind Kind, scope Scope, handler Handler) {
	if err := r.Register(method, kind, scope, handler); err != nil {
		panic("registry: " + err.Error())
	}
}

// Dispatch looks up method, checks its scope against rc, and invokes its
// handler with raw.
func (r *Registry) Dispatch(ctx context.Context, rc *RequestContext, method string, raw json.RawMessage) (any, error) {
	r.mu.RLock()
	e, ok := r.methods[method]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("registry method", method)
	}
	if e.scope == ScopeLibrary && rc.LibraryID == "" {
		return nil, errors.InvalidArgument("method " + method + " requires a library context")
	}
	return e.handler(ctx, rc, raw)
}

// Methods returns every registered method string, for introspection
// (CLI --help generation, a daemon "describe" call).
func (r *Registry) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.methods))
	for m := range r.methods {
		out = append(out, m)
	}
	return out
}
