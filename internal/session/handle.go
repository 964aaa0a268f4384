package session

import (
	"errors"
	"sync"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/pkg/sessionid"
)

// State is the per-request position of a Handle in the session lifecycle.
type State int

const (
	StateUnresolved State = iota
	StateResolving
	StateResolved
	StateFinalizing
	StateCommitted
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateFinalizing:
		return "finalizing"
	case StateCommitted:
		return "committed"
	}
	return "unknown"
}

// ErrNotResolved is returned when a handle is used outside the Resolved state.
var ErrNotResolved = errors.New("session: handle is not in the resolved state")

// Handle is the request-scoped view of the resolved session. Writes stay in
// memory until the Manager finalizes the handle.
type Handle struct {
	mu      sync.Mutex
	state   State
	session *domain.Session
	dirty   map[string]struct{}

	created     bool // guest record minted during Resolve
	established bool // auth record minted during this request
	destroyed   bool
	attachGuest bool
	clearAuth   bool
	clearGuest  bool
}

func newHandle() *Handle {
	return &Handle{state: StateResolving, dirty: map[string]struct{}{}}
}

func (h *Handle) ID() sessionid.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return sessionid.Nil
	}
	return h.session.ID
}

func (h *Handle) Kind() domain.SessionKind {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return ""
	}
	return h.session.Kind
}

func (h *Handle) IsAuthenticated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return !h.destroyed && h.session.IsAuthenticated()
}

// OwnerID returns the user id of an authenticated session, or "".
func (h *Handle) OwnerID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed || h.session == nil {
		return ""
	}
	return h.session.OwnerID
}

// IsNew reports whether the guest session was created by this request.
func (h *Handle) IsNew() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.created
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) Get(key string) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil, false
	}
	v, ok := h.session.Payload[key]
	return v, ok
}

// Set records a payload write. Guest sessions persist only the keys written
// here; authenticated sessions persist the whole payload.
func (h *Handle) Set(key string, value any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateResolved || h.destroyed {
		return ErrNotResolved
	}
	h.session.Payload[key] = value
	h.dirty[key] = struct{}{}
	return nil
}

// Values returns a copy of the payload.
func (h *Handle) Values() map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := map[string]any{}
	if h.session == nil {
		return out
	}
	for k, v := range h.session.Payload {
		out[k] = v
	}
	return out
}

func (h *Handle) resolve(s *domain.Session, created bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = s
	h.created = created
	h.state = StateResolved
}

// snapshot returns a copy of the record and the dirty subset of its payload.
func (h *Handle) snapshot() (*domain.Session, map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil, nil
	}
	changed := make(map[string]any, len(h.dirty))
	for k := range h.dirty {
		changed[k] = h.session.Payload[k]
	}
	return h.session.Clone(), changed
}

func (h *Handle) promote(s *domain.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.session = s
	h.dirty = map[string]struct{}{}
	h.created = false
	h.attachGuest = false
	h.established = true
	h.clearGuest = true
}

func (h *Handle) markClean() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dirty = map[string]struct{}{}
}

func (h *Handle) markDestroyed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = true
	h.dirty = map[string]struct{}{}
}

// beginFinalize moves the handle to Finalizing and reports whether the caller
// owns the write-back.
func (h *Handle) beginFinalize() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state >= StateFinalizing {
		return false
	}
	h.state = StateFinalizing
	return true
}

func (h *Handle) commit() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = StateCommitted
}

func (h *Handle) isResolved() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == StateResolved && h.session != nil && !h.destroyed
}

type cookiePlan struct {
	kind        domain.SessionKind
	id          sessionid.ID
	created     bool
	established bool
	destroyed   bool
	attachGuest bool
	clearAuth   bool
	clearGuest  bool
}

func (h *Handle) cookiePlan() cookiePlan {
	h.mu.Lock()
	defer h.mu.Unlock()
	plan := cookiePlan{
		created:     h.created,
		established: h.established,
		destroyed:   h.destroyed,
		attachGuest: h.attachGuest,
		clearAuth:   h.clearAuth,
		clearGuest:  h.clearGuest,
	}
	if h.session != nil {
		plan.kind = h.session.Kind
		plan.id = h.session.ID
	}
	return plan
}
