package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/proteinpath/protein-path-go/internal/middleware"
)

// NewRouter wires every API route.
func NewRouter(auth *AuthHandler, meals *MealHandler, jwtSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(5, 10))
		r.Post("/api/v1/auth/register", auth.HandleRegister)
		r.Post("/api/v1/auth/login", auth.HandleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret))
		r.Get("/api/v1/auth/me", auth.HandleMe)
		r.Post("/api/v1/auth/refresh", auth.HandleRefresh)

		r.Get("/api/v1/meals", meals.HandleList)
		r.Post("/api/v1/meals", meals.HandleCreate)
		r.Delete("/api/v1/meals/{meal_id}", meals.HandleDelete)

		r.Get("/api/v1/goals", meals.HandleGetGoals)
		r.Put("/api/v1/goals", meals.HandlePutGoals)
		r.Get("/api/v1/summary", meals.HandleSummary)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(0.5, 5))
			r.Post("/api/v1/meals/capture", meals.HandleCapture)
			r.Post("/api/v1/estimate", meals.HandleEstimate)
		})
	})

	return r
}
