// Package session keeps the uploaded table of each browser session.
//
// A session is identified by a random cookie. Its slot holds the last
// successfully uploaded table and the ingestion report that came with it.
// A failed upload never touches the slot.
package session

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"corpdash/internal/cache"
	"corpdash/internal/core"
	"corpdash/internal/ingest"
	"corpdash/internal/log"
)

// CookieName is the session cookie.
const CookieName = "corpdash_session"

// Slot is the per-session state.
type Slot struct {
	Table  *core.Table
	Report ingest.Report
}

// Store maps session IDs to slots. It is safe for concurrent use.
type Store struct {
	slots  *cache.LRUCache[Slot]
	ttl    time.Duration
	logger *log.Logger
}

// NewStore keeps at most maxSessions slots, each dropped after ttl of
// inactivity.
func NewStore(maxSessions int, ttl time.Duration, logger *log.Logger, opts ...cache.Option) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	opts = append([]cache.Option{cache.WithSlidingExpiry()}, opts...)
	return &Store{
		slots:  cache.NewLRUCache[Slot](maxSessions, ttl, opts...),
		ttl:    ttl,
		logger: logger.WithComponent(log.ComponentSession),
	}
}

// Get returns the slot of id; ok is false when the session has no table.
func (s *Store) Get(id string) (Slot, bool) {
	slot, ok := s.slots.Get(id)
	if !ok || slot.Table == nil {
		return Slot{}, false
	}
	return slot, true
}

// Set replaces the slot of id.
func (s *Store) Set(id string, table *core.Table, report ingest.Report) {
	s.slots.Set(id, Slot{Table: table, Report: report})
	s.logger.Debug("Session table replaced", log.FieldSessionID, id, log.FieldRowsKept, table.Len())
}

// Clear empties the slot of id.
func (s *Store) Clear(id string) {
	s.slots.Delete(id)
}

// Size is the number of sessions holding a slot.
func (s *Store) Size() int {
	return s.slots.Size()
}

// Cleaner exposes the underlying cache to a cache.Manager.
func (s *Store) Cleaner() cache.Cleaner {
	return s.slots
}

// EnsureID returns the session ID carried by r, issuing a new cookie on w
// when r has none or carries a malformed one.
func (s *Store) EnsureID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := ID(r); ok {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// ID reads the session ID from r without issuing one.
func ID(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	id, err := uuid.Parse(c.Value)
	if err != nil {
		return "", false
	}
	return id.String(), true
}
