package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/proteinpath/protein-path-go/internal/model"
	"github.com/proteinpath/protein-path-go/internal/repository"
)

// GoalKV is the local key/value store goals are kept in.
type GoalKV interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
}

// GoalStore keeps daily macro targets per identity. It never fails: reads
// fall back to defaults and write errors are only logged.
type GoalStore struct {
	kv GoalKV
}

// NewGoalStore creates a new GoalStore.
func NewGoalStore(kv GoalKV) *GoalStore {
	return &GoalStore{kv: kv}
}

func goalsKey(identityID string) string {
	return "goals:" + identityID
}

// Load returns the saved goals for identityID, or the defaults.
func (s *GoalStore) Load(ctx context.Context, identityID string) model.UserGoals {
	raw, err := s.kv.Get(ctx, goalsKey(identityID))
	if err != nil {
		if !errors.Is(err, repository.ErrKeyNotFound) {
			slog.Warn("loading goals failed", "user_id", identityID, "error", err)
		}
		return model.DefaultGoals()
	}

	var g model.UserGoals
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		slog.Warn("stored goals unreadable", "user_id", identityID, "error", err)
		return model.DefaultGoals()
	}
	return g.WithDefaults()
}

// Save overwrites the goals for identityID.
func (s *GoalStore) Save(ctx context.Context, identityID string, g model.UserGoals) {
	data, err := json.Marshal(g)
	if err != nil {
		slog.Warn("encoding goals failed", "user_id", identityID, "error", err)
		return
	}
	if err := s.kv.Put(ctx, goalsKey(identityID), string(data)); err != nil {
		slog.Warn("saving goals failed", "user_id", identityID, "error", err)
	}
}
