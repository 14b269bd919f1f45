// Package session tracks who is signed in on this client and notifies
// subscribers when that changes.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/proteinpath/protein-path-go/internal/apperr"
	"github.com/proteinpath/protein-path-go/internal/model"
	"github.com/proteinpath/protein-path-go/internal/repository"
)

// TokenKey is the local KV key holding the persisted session token.
const TokenKey = "session:token"

// Authenticator is the auth backend the store delegates to.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (model.Authenticated, error)
	SignUp(ctx context.Context, email, password string) (model.Authenticated, error)
	Restore(ctx context.Context, token string) (model.Authenticated, error)
	Refresh(ctx context.Context, token string) (model.Authenticated, error)
}

// KV persists the session token between runs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// EventKind names a session transition.
type EventKind string

const (
	SignedIn       EventKind = "signed_in"
	SignedOut      EventKind = "signed_out"
	TokenRefreshed EventKind = "token_refreshed"
	Restored       EventKind = "restored"
)

// Event is delivered to subscribers after a transition.
type Event struct {
	Kind    EventKind
	Session model.Session
}

// Ticket captures the identity generation at the start of an operation.
type Ticket uint64

// Store holds the current session. It is safe for concurrent use.
type Store struct {
	auth Authenticator
	kv   KV
	now  func() time.Time

	writeMu sync.Mutex

	mu         sync.Mutex
	current    model.Session
	generation uint64
	listeners  map[int]func(Event)
	nextID     int
	closed     bool
}

// NewStore creates an unauthenticated Store.
func NewStore(auth Authenticator, kv KV) *Store {
	return &Store{
		auth:      auth,
		kv:        kv,
		now:       time.Now,
		current:   model.Unauthenticated{},
		listeners: make(map[int]func(Event)),
	}
}

// Restore loads the persisted token, if any, and validates it. Any failure
// leaves the store unauthenticated and is only logged.
func (s *Store) Restore(ctx context.Context) model.Session {
	var next model.Session = model.Unauthenticated{}
	rejected := false

	token, err := s.kv.Get(ctx, TokenKey)
	switch {
	case errors.Is(err, repository.ErrKeyNotFound):
	case err != nil:
		slog.Warn("reading persisted session failed", "error", err)
	default:
		a, err := s.auth.Restore(ctx, token)
		if err != nil {
			slog.Warn("persisted session rejected", "error", err)
			rejected = true
		} else {
			next = a
		}
	}

	s.writeMu.Lock()
	if rejected {
		s.forgetToken(ctx)
	}
	fns, _ := s.commit(nil, next, true)
	s.writeMu.Unlock()

	notify(fns, Event{Kind: Restored, Session: next})
	return next
}

// Current returns the current session, clearing it first if it has expired.
func (s *Store) Current() model.Session {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	a, ok := cur.(model.Authenticated)
	if !ok || !a.Expired(s.now()) {
		return cur
	}

	var next model.Session = model.Unauthenticated{}
	s.writeMu.Lock()
	fns, swapped := s.commit(cur, next, true)
	if swapped {
		s.forgetToken(context.Background())
	}
	s.writeMu.Unlock()

	if !swapped {
		return s.Current()
	}
	slog.Info("session expired", "user_id", a.Identity.ID)
	notify(fns, Event{Kind: SignedOut, Session: next})
	return next
}

// Identity returns the signed-in identity, if any.
func (s *Store) Identity(_ context.Context) (model.Identity, bool) {
	return model.IdentityOf(s.Current())
}

// SignIn authenticates with email and password.
func (s *Store) SignIn(ctx context.Context, email, password string) (model.Authenticated, error) {
	a, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return model.Authenticated{}, authError(err)
	}
	s.signIn(ctx, a)
	return a, nil
}

// SignUp registers a new account and signs it in.
func (s *Store) SignUp(ctx context.Context, email, password string) (model.Authenticated, error) {
	a, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		return model.Authenticated{}, authError(err)
	}
	s.signIn(ctx, a)
	return a, nil
}

func (s *Store) signIn(ctx context.Context, a model.Authenticated) {
	s.writeMu.Lock()
	s.persistToken(ctx, a.Token)
	fns, _ := s.commit(nil, a, true)
	s.writeMu.Unlock()

	notify(fns, Event{Kind: SignedIn, Session: a})
}

// SignOut clears the session and the persisted token.
func (s *Store) SignOut(ctx context.Context) {
	var next model.Session = model.Unauthenticated{}

	s.writeMu.Lock()
	s.forgetToken(ctx)
	fns, _ := s.commit(nil, next, true)
	s.writeMu.Unlock()

	notify(fns, Event{Kind: SignedOut, Session: next})
}

// Refresh exchanges the current token for a fresh one. The identity, and
// therefore the generation, is unchanged. If the session changed while the
// exchange was in flight the result is dropped and ErrAuth is returned.
func (s *Store) Refresh(ctx context.Context) (model.Authenticated, error) {
	cur, ok := s.Current().(model.Authenticated)
	if !ok {
		return model.Authenticated{}, fmt.Errorf("%w: no active session", apperr.ErrAuth)
	}

	a, err := s.auth.Refresh(ctx, cur.Token)
	if err != nil {
		return model.Authenticated{}, authError(err)
	}
	if a.Identity.ID != cur.Identity.ID {
		return model.Authenticated{}, fmt.Errorf("%w: refreshed token belongs to another identity", apperr.ErrAuth)
	}

	s.writeMu.Lock()
	fns, swapped := s.commit(cur, a, false)
	if swapped {
		s.persistToken(ctx, a.Token)
	}
	s.writeMu.Unlock()

	if !swapped {
		return model.Authenticated{}, fmt.Errorf("%w: session changed during refresh", apperr.ErrAuth)
	}
	notify(fns, Event{Kind: TokenRefreshed, Session: a})
	return a, nil
}

// Ticket returns the current identity generation.
func (s *Store) Ticket() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Ticket(s.generation)
}

// Valid reports whether the identity is unchanged since t was taken.
func (s *Store) Valid(t Ticket) bool {
	return s.Ticket() == t
}

// Subscribe registers fn for every subsequent event and returns a function
// that removes it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Close drops all listeners. Later Subscribe calls are no-ops.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	clear(s.listeners)
}

// commit replaces the session with next if it is still from, returning the
// listeners to notify. A nil from matches any session. Callers hold writeMu
// so the persisted token is written in the same order as the transitions.
func (s *Store) commit(from, next model.Session, bump bool) ([]func(Event), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if from != nil && s.current != from {
		return nil, false
	}
	s.current = next
	if bump {
		s.generation++
	}
	return s.snapshot(), true
}

// snapshot must be called with mu held.
func (s *Store) snapshot() []func(Event) {
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func notify(fns []func(Event), e Event) {
	for _, fn := range fns {
		fn(e)
	}
}

func (s *Store) persistToken(ctx context.Context, token string) {
	if err := s.kv.Put(ctx, TokenKey, token); err != nil {
		slog.Warn("persisting session failed", "error", err)
	}
}

func (s *Store) forgetToken(ctx context.Context) {
	if err := s.kv.Delete(ctx, TokenKey); err != nil {
		slog.Warn("clearing persisted session failed", "error", err)
	}
}

func authError(err error) error {
	if errors.Is(err, apperr.ErrAuth) {
		return err
	}
	return fmt.Errorf("%w: %w", apperr.ErrAuth, err)
}
