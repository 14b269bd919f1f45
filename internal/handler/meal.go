package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/proteinpath/protein-path-go/internal/middleware"
	"github.com/proteinpath/protein-path-go/internal/model"
	"github.com/proteinpath/protein-path-go/internal/service"
)

// MealHandler handles HTTP requests for the meal log.
type MealHandler struct {
	meals *service.MealService
	goals *service.GoalStore
}

// NewMealHandler creates a new MealHandler.
func NewMealHandler(meals *service.MealService, goals *service.GoalStore) *MealHandler {
	return &MealHandler{meals: meals, goals: goals}
}

// HandleList handles GET /api/v1/meals requests.
func (h *MealHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	meals, err := h.meals.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, meals)
}

// HandleCreate handles POST /api/v1/meals requests.
func (h *MealHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.MealRequest
	if !decodeJSON(w, r, maxImageBody, &req) {
		return
	}

	meal, err := h.meals.InsertRequest(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, meal)
}

// HandleCapture handles POST /api/v1/meals/capture requests.
func (h *MealHandler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	var req model.CaptureRequest
	if !decodeJSON(w, r, maxImageBody, &req) {
		return
	}

	meal, err := h.meals.Capture(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, meal)
}

// HandleDelete handles DELETE /api/v1/meals/{meal_id} requests.
func (h *MealHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.meals.Remove(r.Context(), chi.URLParam(r, "meal_id")); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleEstimate handles POST /api/v1/estimate requests.
func (h *MealHandler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	var req model.EstimateRequest
	if !decodeJSON(w, r, maxImageBody, &req) {
		return
	}

	est, err := h.meals.Estimate(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, est)
}

// HandleGetGoals handles GET /api/v1/goals requests.
func (h *MealHandler) HandleGetGoals(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	writeJSON(w, http.StatusOK, h.goals.Load(r.Context(), id.ID))
}

// HandlePutGoals handles PUT /api/v1/goals requests.
func (h *MealHandler) HandlePutGoals(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	var goals model.UserGoals
	if !decodeJSON(w, r, maxJSONBody, &goals) {
		return
	}
	if !goals.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse("every goal must be a positive number"))
		return
	}

	h.goals.Save(r.Context(), id.ID, goals)
	writeJSON(w, http.StatusOK, goals)
}

// HandleSummary handles GET /api/v1/summary?date=YYYY-MM-DD requests.
func (h *MealHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	sum, err := h.meals.DaySummary(r.Context(), r.URL.Query().Get("date"), h.goals.Load(r.Context(), id.ID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sum)
}
