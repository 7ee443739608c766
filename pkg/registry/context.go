package registry

import (
	"github.com/spacecore/spacecore/pkg/core"
	"github.com/spacecore/spacecore/pkg/job"
	"github.com/spacecore/spacecore/pkg/pairing"
	"github.com/spacecore/spacecore/pkg/resolver"
	"github.com/spacecore/spacecore/pkg/sync"
)

// RequestContext is what every handler receives: the process-wide Context
// plus the subsystem singletons a handler dispatches into, and (for
// ScopeLibrary methods) the library this call is scoped to. LibraryID is
// the only field a caller sets per-request; everything else is assembled
// once at daemon startup and shared across every dispatched call.
type RequestContext struct {
	Core     *core.Context
	Jobs     *job.Scheduler
	Pairing  *pairing.Manager
	Sync     *sync.Engine
	Resolver *resolver.Resolver

	LibraryID string
}
