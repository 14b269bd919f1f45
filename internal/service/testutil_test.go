package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/proteinpath/protein-path-go/internal/estimate"
	"github.com/proteinpath/protein-path-go/internal/model"
	"github.com/proteinpath/protein-path-go/internal/repository"
	"github.com/proteinpath/protein-path-go/internal/session"
)

func newTestDB(t *testing.T) (*sql.DB, repository.Dialect) {
	t.Helper()

	db, dialect, err := repository.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("repository.Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, dialect
}

// switchableIdentity is an IdentitySource whose identity tests can change,
// bumping the generation like the session store does.
type switchableIdentity struct {
	mu         sync.Mutex
	id         model.Identity
	signedIn   bool
	generation uint64
	// onIdentity runs after each lookup, letting a test switch users mid-call.
	onIdentity func()
}

func (s *switchableIdentity) set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = model.Identity{ID: id, Email: id + "@example.com"}
	s.signedIn = id != ""
	s.generation++
}

func (s *switchableIdentity) Identity(context.Context) (model.Identity, bool) {
	s.mu.Lock()
	id, ok := s.id, s.signedIn
	hook := s.onIdentity
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return id, ok
}

func (s *switchableIdentity) Ticket() session.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return session.Ticket(s.generation)
}

func (s *switchableIdentity) Valid(t session.Ticket) bool {
	return s.Ticket() == t
}

type stubEstimator struct {
	est   model.Estimate
	err   error
	calls int
	last  estimate.Request
}

func (s *stubEstimator) Estimate(_ context.Context, req estimate.Request) (model.Estimate, error) {
	s.calls++
	s.last = req
	return s.est, s.err
}

// recordingImages is an image store that remembers what is currently stored.
type recordingImages struct {
	stored map[string]bool
	// onPut runs before Put returns, letting a test switch users mid-upload.
	onPut func()
}

func (r *recordingImages) Put(_ context.Context, ownerID, mealID string, _ []byte) (string, error) {
	if r.stored == nil {
		r.stored = make(map[string]bool)
	}
	url := "https://cdn.example.com/meals/" + ownerID + "/" + mealID + ".png"
	r.stored[url] = true
	if r.onPut != nil {
		r.onPut()
	}
	return url, nil
}

func (r *recordingImages) Delete(_ context.Context, url string) error {
	delete(r.stored, url)
	return nil
}

type mealFixture struct {
	svc       *MealService
	ids       *switchableIdentity
	estimator *stubEstimator
}

func newMealFixture(t *testing.T, now time.Time) mealFixture {
	t.Helper()

	db, _ := newTestDB(t)
	ids := &switchableIdentity{}
	est := &stubEstimator{}
	svc := NewMealService(repository.NewMealRepository(db), ids, est, nil, time.UTC)
	svc.now = func() time.Time { return now }
	return mealFixture{svc: svc, ids: ids, estimator: est}
}
