package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/catalog/domain"
	"github.com/fastygo/catalog/pkg/sessionid"
	"github.com/fastygo/catalog/repository"
)

const (
	DefaultGuestTTL = 30 * time.Minute
	DefaultAuthTTL  = 60 * time.Minute
)

// SessionOptions tunes one session namespace.
type SessionOptions struct {
	TTL       time.Duration
	OpTimeout time.Duration
}

type sessionStore struct {
	client  redislib.UniversalClient
	kind    domain.SessionKind
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

func newSessionStore(client redislib.UniversalClient, kind domain.SessionKind, fallbackTTL time.Duration, opts SessionOptions) sessionStore {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = fallbackTTL
	}
	return sessionStore{
		client:  client,
		kind:    kind,
		prefix:  fmt.Sprintf("session:%s:", kind),
		ttl:     ttl,
		timeout: opts.OpTimeout,
	}
}

func (s *sessionStore) Kind() domain.SessionKind {
	return s.kind
}

func (s *sessionStore) Create(ctx context.Context, session *domain.Session) (sessionid.ID, error) {
	if session == nil || session.ID.IsZero() {
		return sessionid.Nil, domain.ErrInvalidPayload
	}
	s.normalize(session)

	payload, err := s.encode(session)
	if err != nil {
		return sessionid.Nil, err
	}

	opCtx, cancel := opContext(ctx, s.timeout)
	defer cancel()

	if err := s.client.Set(opCtx, s.key(session.ID), payload, s.ttl).Err(); err != nil {
		return sessionid.Nil, unavailable(err)
	}
	return session.ID, nil
}

// Get reads a record. An undecodable record reads as a miss.
func (s *sessionStore) Get(ctx context.Context, id sessionid.ID) (*domain.Session, error) {
	if id.IsZero() {
		return nil, domain.ErrSessionNotFound
	}

	opCtx, cancel := opContext(ctx, s.timeout)
	defer cancel()

	raw, err := s.client.Get(opCtx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, unavailable(err)
	}

	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, domain.ErrSessionNotFound
	}
	if session.Payload == nil {
		session.Payload = map[string]any{}
	}
	session.ID = id
	session.Kind = s.kind
	return &session, nil
}

func (s *sessionStore) Delete(ctx context.Context, id sessionid.ID) error {
	if id.IsZero() {
		return nil
	}

	opCtx, cancel := opContext(ctx, s.timeout)
	defer cancel()

	if err := s.client.Del(opCtx, s.key(id)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// replace writes the record only if the key still exists, refreshing its TTL.
func (s *sessionStore) replace(ctx context.Context, session *domain.Session) error {
	payload, err := s.encode(session)
	if err != nil {
		return err
	}

	opCtx, cancel := opContext(ctx, s.timeout)
	defer cancel()

	ok, err := s.client.SetXX(opCtx, s.key(session.ID), payload, s.ttl).Result()
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return domain.ErrStaleSession
	}
	return nil
}

func (s *sessionStore) normalize(session *domain.Session) {
	session.Kind = s.kind
	if s.kind == domain.SessionGuest {
		session.OwnerID = ""
	}
	if session.Payload == nil {
		session.Payload = map[string]any{}
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.ExpiresAt = time.Now().UTC().Add(s.ttl)
}

func (s *sessionStore) encode(session *domain.Session) ([]byte, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "session payload is not serializable", err)
	}
	return payload, nil
}

func (s *sessionStore) key(id sessionid.ID) string {
	return s.prefix + id.String()
}

type guestSessionRepository struct {
	sessionStore
}

// NewGuestSessionRepository creates the guest namespace. Updates overlay the
// given payload fields on the stored payload and keep every other key.
func NewGuestSessionRepository(client redislib.UniversalClient, opts SessionOptions) repository.SessionRepository {
	return &guestSessionRepository{
		sessionStore: newSessionStore(client, domain.SessionGuest, DefaultGuestTTL, opts),
	}
}

// maxOverlayAttempts bounds optimistic retries when concurrent requests write
// the same guest record.
const maxOverlayAttempts = 4

// errStaleRecord aborts the transaction when the watched key is gone.
var errStaleRecord = errors.New("guest record missing")

// Update overlays session.Payload on the stored payload under WATCH, so two
// requests writing different keys never drop each other's fields.
func (r *guestSessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID.IsZero() {
		return domain.ErrInvalidPayload
	}

	opCtx, cancel := opContext(ctx, r.timeout)
	defer cancel()

	key := r.key(session.ID)
	for i := 0; i < maxOverlayAttempts; i++ {
		var merged domain.Session
		err := r.client.Watch(opCtx, func(tx *redislib.Tx) error {
			raw, err := tx.Get(opCtx, key).Bytes()
			if err != nil {
				if errors.Is(err, redislib.Nil) {
					return errStaleRecord
				}
				return err
			}
			if err := json.Unmarshal(raw, &merged); err != nil {
				return errStaleRecord
			}
			if merged.Payload == nil {
				merged.Payload = map[string]any{}
			}
			for k, v := range session.Payload {
				merged.Payload[k] = v
			}
			merged.ID = session.ID
			r.normalize(&merged)

			payload, err := r.encode(&merged)
			if err != nil {
				return err
			}
			var set *redislib.BoolCmd
			if _, err := tx.TxPipelined(opCtx, func(pipe redislib.Pipeliner) error {
				set = pipe.SetXX(opCtx, key, payload, r.ttl)
				return nil
			}); err != nil {
				return err
			}
			if !set.Val() {
				return errStaleRecord
			}
			return nil
		}, key)

		switch {
		case err == nil:
			session.Payload = merged.Payload
			session.CreatedAt = merged.CreatedAt
			session.ExpiresAt = merged.ExpiresAt
			return nil
		case errors.Is(err, redislib.TxFailedErr):
			continue
		case errors.Is(err, errStaleRecord):
			return domain.ErrStaleSession
		case domain.IsDomainError(err, domain.ErrCodeInvalid):
			return err
		default:
			return unavailable(err)
		}
	}
	return unavailable(errors.New("guest record kept changing under concurrent writers"))
}

type authSessionRepository struct {
	sessionStore
}

// NewAuthSessionRepository creates the authenticated namespace. Updates
// replace the whole record.
func NewAuthSessionRepository(client redislib.UniversalClient, opts SessionOptions) repository.SessionRepository {
	return &authSessionRepository{
		sessionStore: newSessionStore(client, domain.SessionAuth, DefaultAuthTTL, opts),
	}
}

func (r *authSessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID.IsZero() {
		return domain.ErrInvalidPayload
	}
	r.normalize(session)
	return r.replace(ctx, session)
}
