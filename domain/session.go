package domain

import (
	"time"

	"github.com/fastygo/catalog/pkg/sessionid"
)

// SessionKind names the namespace a session record lives in.
type SessionKind string

const (
	SessionGuest SessionKind = "guest"
	SessionAuth  SessionKind = "auth"
)

// Session is a record held by exactly one of the guest or auth namespaces.
type Session struct {
	ID        sessionid.ID   `json:"id"`
	Kind      SessionKind    `json:"kind"`
	OwnerID   string         `json:"owner_id,omitempty"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// NewSession returns an empty record of the given kind.
func NewSession(id sessionid.ID, kind SessionKind, ownerID string) *Session {
	return &Session{
		ID:        id,
		Kind:      kind,
		OwnerID:   ownerID,
		Payload:   map[string]any{},
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Kind == SessionAuth && s.OwnerID != ""
}

func (s *Session) IsExpired(reference time.Time) bool {
	if s == nil {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !s.ExpiresAt.After(reference)
}

// Clone returns a copy with an independent top-level payload map.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Payload = make(map[string]any, len(s.Payload))
	for k, v := range s.Payload {
		out.Payload[k] = v
	}
	return &out
}
