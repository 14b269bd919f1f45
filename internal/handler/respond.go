package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/proteinpath/protein-path-go/internal/apperr"
	"github.com/proteinpath/protein-path-go/internal/estimate"
	"github.com/proteinpath/protein-path-go/internal/service"
)

const (
	maxJSONBody  = 1 << 20
	maxImageBody = 12 << 20
)

// decodeJSON reads a JSON body of at most limit bytes into v. It writes the
// error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}

// writeError maps an error kind to its HTTP status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrEmailTaken) {
		writeJSON(w, http.StatusConflict, errorResponse(err.Error()))
		return
	}

	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	case apperr.ErrAuth:
		writeJSON(w, http.StatusUnauthorized, errorResponse(err.Error()))
	case apperr.ErrEstimation:
		resp := errorResponse("failed to analyze meal, please try again")
		var eerr *estimate.Error
		if errors.As(err, &eerr) {
			resp["category"] = string(eerr.Category)
		}
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) map[string]string {
	return map[string]string{"error": msg}
}
