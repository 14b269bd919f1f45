package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/proteinpath/protein-path-go/internal/apperr"
	"github.com/proteinpath/protein-path-go/internal/estimate"
	"github.com/proteinpath/protein-path-go/internal/middleware"
	"github.com/proteinpath/protein-path-go/internal/model"
	"github.com/proteinpath/protein-path-go/internal/repository"
	"github.com/proteinpath/protein-path-go/internal/service"
)

const testSecret = "handler-test-secret"

type stubEstimator struct {
	est model.Estimate
	err error
}

func (s *stubEstimator) Estimate(_ context.Context, req estimate.Request) (model.Estimate, error) {
	if req.Description == "" && len(req.Image) == 0 {
		return model.Estimate{}, apperr.ErrValidation
	}
	return s.est, s.err
}

type testServer struct {
	srv       *httptest.Server
	estimator *stubEstimator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, dialect, err := repository.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("repository.Open() unexpected error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	est := &stubEstimator{est: model.Estimate{
		Name:      "Oatmeal",
		Nutrition: model.NutritionData{Calories: 350, Protein: 12, EstimatedWeight: "1 bowl"},
	}}

	authSvc := service.NewAuthService(repository.NewUserRepository(db), testSecret, time.Hour)
	mealSvc := service.NewMealService(repository.NewMealRepository(db), middleware.ContextIdentity{}, est, nil, time.UTC)
	goals := service.NewGoalStore(repository.NewKVStore(db, dialect))

	srv := httptest.NewServer(NewRouter(NewAuthHandler(authSvc), NewMealHandler(mealSvc, goals), testSecret))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, estimator: est}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("NewRequest() unexpected error: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func (ts *testServer) register(t *testing.T, email string) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", model.CreateUserRequest{Email: email, Password: "password123"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	return decode[model.AuthResponse](t, resp).Token
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	if resp := ts.do(t, http.MethodGet, "/health", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestAuthFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "ada@example.com")

	resp := ts.do(t, http.MethodPost, "/api/v1/auth/register", "", model.CreateUserRequest{Email: "ada@example.com", Password: "password123"})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad login status = %d, want 401", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status = %d, want 200", resp.StatusCode)
	}
	if me := decode[model.UserResponse](t, resp); me.Email != "ada@example.com" {
		t.Errorf("me email = %q", me.Email)
	}

	resp = ts.do(t, http.MethodPost, "/api/v1/auth/refresh", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("refresh status = %d, want 200", resp.StatusCode)
	}
}

func TestInvalidBody(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodPost, ts.srv.URL+"/api/v1/auth/login", bytes.NewBufferString("{"))
	resp, err := ts.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestMealsRequireToken(t *testing.T) {
	ts := newTestServer(t)
	if resp := ts.do(t, http.MethodGet, "/api/v1/meals", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestMealLifecycle(t *testing.T) {
	ts := newTestServer(t)
	u1 := ts.register(t, "u1@example.com")
	u2 := ts.register(t, "u2@example.com")

	resp := ts.do(t, http.MethodPost, "/api/v1/meals", u1, model.MealRequest{
		Name:      "Oatmeal",
		Timestamp: 1000,
		Nutrition: model.NutritionData{Calories: 350, Protein: 12},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	created := decode[model.Meal](t, resp)

	resp = ts.do(t, http.MethodGet, "/api/v1/meals", u2, nil)
	if meals := decode[[]model.Meal](t, resp); len(meals) != 0 {
		t.Errorf("u2 sees %d meals, want 0", len(meals))
	}

	resp = ts.do(t, http.MethodDelete, "/api/v1/meals/"+created.ID, u2, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("foreign delete status = %d, want 204", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/meals", u1, nil)
	meals := decode[[]model.Meal](t, resp)
	if len(meals) != 1 || meals[0].OwnerID == "" {
		t.Fatalf("u1 meals = %+v, want the oatmeal", meals)
	}

	resp = ts.do(t, http.MethodDelete, "/api/v1/meals/"+created.ID, u1, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", resp.StatusCode)
	}
	resp = ts.do(t, http.MethodGet, "/api/v1/meals", u1, nil)
	if meals := decode[[]model.Meal](t, resp); len(meals) != 0 {
		t.Errorf("u1 has %d meals after delete, want 0", len(meals))
	}
}

func TestCreateMealValidation(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "v@example.com")

	resp := ts.do(t, http.MethodPost, "/api/v1/meals", token, model.MealRequest{Name: "x", Type: "brunch"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCaptureAndEstimate(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "c@example.com")

	resp := ts.do(t, http.MethodPost, "/api/v1/estimate", token, model.EstimateRequest{Description: "bowl of oats"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("estimate status = %d, want 200", resp.StatusCode)
	}
	if est := decode[model.Estimate](t, resp); est.Name != "Oatmeal" {
		t.Errorf("estimate name = %q", est.Name)
	}

	resp = ts.do(t, http.MethodPost, "/api/v1/meals/capture", token, model.CaptureRequest{Description: "bowl of oats", Type: "breakfast"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("capture status = %d, want 201", resp.StatusCode)
	}
	if meal := decode[model.Meal](t, resp); meal.Type != model.Breakfast || meal.Nutrition.Calories != 350 {
		t.Errorf("captured meal = %+v", meal)
	}

	resp = ts.do(t, http.MethodPost, "/api/v1/estimate", token, model.EstimateRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty estimate status = %d, want 400", resp.StatusCode)
	}
}

func TestEstimationFailureIsBadGateway(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "e@example.com")
	ts.estimator.err = &estimate.Error{Category: estimate.QuotaExceeded, Status: 429, Msg: "quota"}

	resp := ts.do(t, http.MethodPost, "/api/v1/meals/capture", token, model.CaptureRequest{Description: "soup"})
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
	if body := decode[map[string]string](t, resp); body["category"] != string(estimate.QuotaExceeded) {
		t.Errorf("category = %q", body["category"])
	}
}

func TestGoalsAndSummary(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "g@example.com")

	resp := ts.do(t, http.MethodGet, "/api/v1/goals", token, nil)
	if g := decode[model.UserGoals](t, resp); g != model.DefaultGoals() {
		t.Errorf("initial goals = %+v, want defaults", g)
	}

	custom := model.UserGoals{Calories: 2000, Protein: 100, Carbs: 200, Fat: 60, Sugar: 40}
	resp = ts.do(t, http.MethodPut, "/api/v1/goals", token, custom)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put goals status = %d, want 200", resp.StatusCode)
	}

	resp = ts.do(t, http.MethodPut, "/api/v1/goals", token, model.UserGoals{Calories: -1})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid goals status = %d, want 400", resp.StatusCode)
	}

	ts.do(t, http.MethodPost, "/api/v1/meals", token, model.MealRequest{
		Name:      "Lunch",
		Timestamp: time.Now().UnixMilli(),
		Nutrition: model.NutritionData{Calories: 500, Protein: 50},
	})

	resp = ts.do(t, http.MethodGet, "/api/v1/summary", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d, want 200", resp.StatusCode)
	}
	sum := decode[model.DaySummary](t, resp)
	if sum.Calories.Goal != 2000 || sum.Calories.Consumed != 500 || sum.Protein.Percent != 50 {
		t.Errorf("summary = %+v", sum)
	}

	resp = ts.do(t, http.MethodGet, "/api/v1/summary?date=1999-01-01", token, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("out of range summary status = %d, want 400", resp.StatusCode)
	}
}
