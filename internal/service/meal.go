package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/proteinpath/protein-path-go/internal/apperr"
	"github.com/proteinpath/protein-path-go/internal/estimate"
	"github.com/proteinpath/protein-path-go/internal/imagestore"
	"github.com/proteinpath/protein-path-go/internal/model"
	"github.com/proteinpath/protein-path-go/internal/repository"
	"github.com/proteinpath/protein-path-go/internal/session"
)

// SummaryWindowDays is how far back a day summary may look.
const SummaryWindowDays = 30

const dateLayout = "2006-01-02"

var (
	ErrNotAuthenticated = fmt.Errorf("%w: sign in required", apperr.ErrAuth)
	ErrStaleSession     = fmt.Errorf("%w: identity changed during request", apperr.ErrAuth)
	ErrMealNameRequired = fmt.Errorf("%w: name is required", apperr.ErrValidation)
	ErrNegativeAmount   = fmt.Errorf("%w: nutrition values must not be negative", apperr.ErrValidation)
	ErrMealIDRequired   = fmt.Errorf("%w: meal id is required", apperr.ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: date must be YYYY-MM-DD", apperr.ErrValidation)
	ErrDateOutOfRange   = fmt.Errorf("%w: date must be within the last %d days", apperr.ErrValidation, SummaryWindowDays)
)

// IdentitySource reports who the current caller is.
type IdentitySource interface {
	Identity(ctx context.Context) (model.Identity, bool)
}

// generationGuard is implemented by identity sources whose identity can
// change while a call is in flight.
type generationGuard interface {
	Ticket() session.Ticket
	Valid(session.Ticket) bool
}

// Estimator produces a nutrition estimate.
type Estimator interface {
	Estimate(ctx context.Context, req estimate.Request) (model.Estimate, error)
}

// MealService scopes every meal operation to the current identity.
type MealService struct {
	repo      *repository.MealRepository
	ids       IdentitySource
	estimator Estimator
	images    imagestore.Store
	loc       *time.Location
	now       func() time.Time
}

// NewMealService creates a new MealService. loc decides day boundaries for
// summaries; nil means UTC.
func NewMealService(repo *repository.MealRepository, ids IdentitySource, estimator Estimator, images imagestore.Store, loc *time.Location) *MealService {
	if loc == nil {
		loc = time.UTC
	}
	if images == nil {
		images = imagestore.DataURIStore{}
	}
	return &MealService{
		repo:      repo,
		ids:       ids,
		estimator: estimator,
		images:    images,
		loc:       loc,
		now:       time.Now,
	}
}

// scope is the identity an operation runs under plus the generation it
// must still hold when the operation completes.
type scope struct {
	identity model.Identity
	guard    generationGuard
	ticket   session.Ticket
}

func (s *MealService) begin(ctx context.Context) (scope, error) {
	var sc scope
	if g, ok := s.ids.(generationGuard); ok {
		sc.guard = g
		sc.ticket = g.Ticket()
	}

	id, ok := s.ids.Identity(ctx)
	if !ok {
		return scope{}, ErrNotAuthenticated
	}
	sc.identity = id
	return sc, nil
}

func (sc scope) check() error {
	if sc.guard != nil && !sc.guard.Valid(sc.ticket) {
		slog.Warn("discarding result for a previous identity", "user_id", sc.identity.ID)
		return ErrStaleSession
	}
	return nil
}

// List returns the caller's meals, newest first.
func (s *MealService) List(ctx context.Context) ([]model.Meal, error) {
	sc, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}

	meals, err := s.repo.ListByUser(ctx, sc.identity.ID)
	if err != nil {
		return nil, storageError("list meals", err)
	}
	if err := sc.check(); err != nil {
		return nil, err
	}
	return meals, nil
}

// Insert stores meal for the caller. OwnerID is always overwritten with the
// current identity. A missing ID, timestamp or type is filled in.
func (s *MealService) Insert(ctx context.Context, meal model.Meal) (model.Meal, error) {
	sc, err := s.begin(ctx)
	if err != nil {
		return model.Meal{}, err
	}
	return s.insert(ctx, sc, meal)
}

func (s *MealService) insert(ctx context.Context, sc scope, meal model.Meal) (model.Meal, error) {
	meal.Name = strings.TrimSpace(meal.Name)
	if meal.Name == "" {
		return model.Meal{}, ErrMealNameRequired
	}
	if hasNegative(meal.Nutrition) {
		return model.Meal{}, ErrNegativeAmount
	}
	if meal.Type == "" {
		meal.Type = model.Snack
	}
	if _, err := model.ParseMealType(string(meal.Type)); err != nil {
		return model.Meal{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if meal.ID == "" {
		meal.ID = uuid.NewString()
	}
	if meal.Timestamp == 0 {
		meal.Timestamp = s.now().UnixMilli()
	}
	meal.OwnerID = sc.identity.ID

	if err := sc.check(); err != nil {
		return model.Meal{}, err
	}
	saved, err := s.repo.Insert(ctx, meal)
	if err != nil {
		return model.Meal{}, storageError("insert meal", err)
	}
	if err := sc.check(); err != nil {
		return model.Meal{}, storedStaleError{err}
	}

	slog.Info("meal logged", "user_id", sc.identity.ID, "meal_id", saved.ID, "calories", saved.Nutrition.Calories)
	return saved, nil
}

// storedStaleError reports a stale session detected after the meal row was
// written. The row is kept, so anything it refers to must be kept too.
type storedStaleError struct{ error }

func (e storedStaleError) Unwrap() error { return e.error }

// InsertRequest validates and inserts a client-built meal.
func (s *MealService) InsertRequest(ctx context.Context, req model.MealRequest) (model.Meal, error) {
	mealType, err := model.ParseMealType(req.Type)
	if err != nil {
		return model.Meal{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}

	return s.Insert(ctx, model.Meal{
		Name:        req.Name,
		Timestamp:   req.Timestamp,
		Nutrition:   req.Nutrition,
		ImageURL:    req.ImageURL,
		Description: strings.TrimSpace(req.Description),
		Type:        mealType,
	})
}

// Remove deletes the caller's meal with id. Removing an absent or foreign
// id succeeds without deleting anything.
func (s *MealService) Remove(ctx context.Context, id string) error {
	sc, err := s.begin(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return ErrMealIDRequired
	}

	n, err := s.repo.Delete(ctx, sc.identity.ID, id)
	if err != nil {
		return storageError("delete meal", err)
	}
	if n == 0 {
		slog.Debug("delete matched no meal", "user_id", sc.identity.ID, "meal_id", id)
	}
	return sc.check()
}

// Estimate returns a nutrition estimate without logging a meal.
func (s *MealService) Estimate(ctx context.Context, req model.EstimateRequest) (model.Estimate, error) {
	if _, err := s.begin(ctx); err != nil {
		return model.Estimate{}, err
	}

	image, err := imagestore.Decode(req.Image)
	if err != nil {
		return model.Estimate{}, err
	}
	return s.estimator.Estimate(ctx, estimate.Request{Description: req.Description, Image: image})
}

// Capture estimates nutrition for a description and/or photo and logs the
// result as a new meal timestamped now.
func (s *MealService) Capture(ctx context.Context, req model.CaptureRequest) (model.Meal, error) {
	sc, err := s.begin(ctx)
	if err != nil {
		return model.Meal{}, err
	}

	mealType, err := model.ParseMealType(req.Type)
	if err != nil {
		return model.Meal{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	image, err := imagestore.Decode(req.Image)
	if err != nil {
		return model.Meal{}, err
	}

	est, err := s.estimator.Estimate(ctx, estimate.Request{Description: req.Description, Image: image})
	if err != nil {
		return model.Meal{}, err
	}
	if err := sc.check(); err != nil {
		return model.Meal{}, err
	}

	meal := model.Meal{
		ID:          uuid.NewString(),
		Name:        est.Name,
		Timestamp:   s.now().UnixMilli(),
		Nutrition:   est.Nutrition,
		Description: strings.TrimSpace(req.Description),
		Type:        mealType,
	}

	if len(image) > 0 {
		url, err := s.images.Put(ctx, sc.identity.ID, meal.ID, image)
		if err != nil {
			return model.Meal{}, err
		}
		meal.ImageURL = url
	}

	saved, err := s.insert(ctx, sc, meal)
	var stored storedStaleError
	if err != nil && meal.ImageURL != "" && !errors.As(err, &stored) {
		if derr := s.images.Delete(context.WithoutCancel(ctx), meal.ImageURL); derr != nil {
			slog.Warn("removing orphaned meal photo failed", "meal_id", meal.ID, "error", derr)
		}
	}
	return saved, err
}

// DaySummary totals the caller's meals on date (YYYY-MM-DD, empty for today)
// against goals. The date must fall within the last SummaryWindowDays days.
func (s *MealService) DaySummary(ctx context.Context, date string, goals model.UserGoals) (model.DaySummary, error) {
	sc, err := s.begin(ctx)
	if err != nil {
		return model.DaySummary{}, err
	}

	today := startOfDay(s.now().In(s.loc))
	day := today
	if date != "" {
		day, err = time.ParseInLocation(dateLayout, date, s.loc)
		if err != nil {
			return model.DaySummary{}, ErrInvalidDate
		}
	}
	if day.After(today) || day.Before(today.AddDate(0, 0, -SummaryWindowDays)) {
		return model.DaySummary{}, ErrDateOutOfRange
	}

	from := day.UnixMilli()
	to := day.AddDate(0, 0, 1).UnixMilli() - 1

	meals, err := s.repo.ListBetween(ctx, sc.identity.ID, from, to)
	if err != nil {
		return model.DaySummary{}, storageError("list meals", err)
	}
	if err := sc.check(); err != nil {
		return model.DaySummary{}, err
	}

	return summarize(day.Format(dateLayout), meals, goals.WithDefaults()), nil
}

func summarize(date string, meals []model.Meal, goals model.UserGoals) model.DaySummary {
	var total model.NutritionData
	for _, m := range meals {
		total.Calories += m.Nutrition.Calories
		total.Protein += m.Nutrition.Protein
		total.Carbs += m.Nutrition.Carbs
		total.Fat += m.Nutrition.Fat
		total.Sugar += m.Nutrition.Sugar
	}

	return model.DaySummary{
		Date:     date,
		Meals:    meals,
		Calories: progress(total.Calories, goals.Calories),
		Protein:  progress(total.Protein, goals.Protein),
		Carbs:    progress(total.Carbs, goals.Carbs),
		Fat:      progress(total.Fat, goals.Fat),
		Sugar:    progress(total.Sugar, goals.Sugar),
	}
}

func progress(consumed, goal float64) model.MacroProgress {
	p := model.MacroProgress{Consumed: consumed, Goal: goal}
	if goal > 0 {
		p.Percent = math.Max(0, math.Min(consumed/goal*100, 100))
	}
	return p
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func hasNegative(n model.NutritionData) bool {
	return n.Calories < 0 || n.Protein < 0 || n.Carbs < 0 || n.Fat < 0 || n.Sugar < 0
}

// IsStale reports whether err means a result was discarded because the
// identity changed.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleSession)
}
