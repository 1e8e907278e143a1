// Package session keeps per-user interactive state between web requests.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/KaramelBytes/effluent-cli/internal/dataset"
	"github.com/KaramelBytes/effluent-cli/internal/logging"
	"github.com/KaramelBytes/effluent-cli/internal/narrative"
)

var (
	ErrNotFound  = errors.New("session not found or expired")
	ErrWrongKind = errors.New("only an anomaly analysis may fill the anomaly slot")
)

// DefaultTTL is the idle time after which a session is dropped.
const DefaultTTL = time.Hour

// Session holds one uploaded dataset and the narratives produced for it.
// The dataset is immutable after Start.
type Session struct {
	ID      string
	Dataset *dataset.Dataset
	Created time.Time

	// action serialises user actions on this session.
	action sync.Mutex

	mu         sync.RWMutex
	anomaly    narrative.Response
	hasAnomaly bool
	last       narrative.Response
	hasLast    bool
	question   string
	flashes    []string
}

// Do runs fn while holding the session's action lock, so two actions on the
// same session never overlap.
func (s *Session) Do(fn func()) {
	s.action.Lock()
	defer s.action.Unlock()
	fn()
}

// AnomalyNarrative returns the persisted anomaly explanation.
func (s *Session) AnomalyNarrative() (narrative.Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.anomaly, s.hasAnomaly
}

// Last returns the most recent transient narrative and, for a question, the
// question text.
func (s *Session) Last() (resp narrative.Response, question string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.question, s.hasLast
}

// SetLast records a transient narrative. It is replaced by the next action.
func (s *Session) SetLast(resp narrative.Response, question string) {
	s.mu.Lock()
	s.last, s.question, s.hasLast = resp, question, true
	s.mu.Unlock()
}

// Flash queues a message for the next render.
func (s *Session) Flash(msg string) {
	s.mu.Lock()
	s.flashes = append(s.flashes, msg)
	s.mu.Unlock()
}

// TakeFlashes returns and clears the queued messages.
func (s *Session) TakeFlashes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

// Store is a goroutine-safe set of sessions with idle expiry.
type Store struct {
	c   *cache.Cache
	ttl time.Duration
}

// NewStore returns a store whose sessions expire after ttl without access.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	sweep := ttl / 2
	if sweep < time.Second {
		sweep = time.Second
	}
	c := cache.New(ttl, sweep)
	c.OnEvicted(func(id string, _ interface{}) {
		logging.Component("session").Debug().Str("session", id).Msg("session dropped")
	})
	return &Store{c: c, ttl: ttl}
}

// Start creates an empty session around ds.
func (st *Store) Start(ds *dataset.Dataset) *Session {
	s := &Session{ID: uuid.NewString(), Dataset: ds, Created: time.Now()}
	st.c.SetDefault(s.ID, s)
	logging.Component("session").Info().Str("session", s.ID).Str("dataset", ds.Name).Int("rows", ds.Rows()).Msg("session started")
	return s
}

// Get returns a live session and extends its idle deadline.
func (st *Store) Get(id string) (*Session, error) {
	v, ok := st.c.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s := v.(*Session)
	st.c.SetDefault(id, s)
	return s, nil
}

// SetAnomalyNarrative replaces the anomaly slot with a complete response.
// The slot is never partially written: callers pass the finished Response.
func (st *Store) SetAnomalyNarrative(id string, resp narrative.Response) error {
	if resp.Kind != narrative.KindAnomaly {
		return ErrWrongKind
	}
	s, err := st.Get(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.anomaly, s.hasAnomaly = resp, true
	s.mu.Unlock()
	return nil
}

// End drops the session and everything it holds.
func (st *Store) End(id string) {
	st.c.Delete(id)
}

// Len reports the number of live sessions.
func (st *Store) Len() int { return st.c.ItemCount() }
