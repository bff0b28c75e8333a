package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ternarybob/scout/internal/interfaces"
)

type contextKey string

// UserIDKey carries the authenticated user identity through the request
// context. The auth gateway middleware sets it; handlers read it.
const UserIDKey contextKey = "user_id"

// UserID returns the authenticated user from the request context
func UserID(r *http.Request) string {
	if id, ok := r.Context().Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID stores the authenticated user on a context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteDetail(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteDetail writes an error response body of the form {"detail": ...}
func WriteDetail(w http.ResponseWriter, statusCode int, detail string) error {
	return WriteJSON(w, statusCode, map[string]string{"detail": detail})
}

// WriteStorageError maps error kinds onto HTTP status codes: validation 400,
// not found 404, illegal or raced transitions 409, everything else 500
func WriteStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interfaces.ErrValidation):
		WriteDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, interfaces.ErrNotFound):
		WriteDetail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, interfaces.ErrInvalidTransition), errors.Is(err, interfaces.ErrConcurrentTransition):
		WriteDetail(w, http.StatusConflict, err.Error())
	default:
		WriteDetail(w, http.StatusInternalServerError, err.Error())
	}
}

// GetPaginationParams extracts page and per_page from the query string.
// Page is 1-based; per_page defaults to 20 and caps at 100.
func GetPaginationParams(r *http.Request) (page, perPage int) {
	page = 1
	perPage = 20

	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p >= 1 {
			page = p
		}
	}

	if perPageStr := r.URL.Query().Get("per_page"); perPageStr != "" {
		if pp, err := strconv.Atoi(perPageStr); err == nil && pp > 0 && pp <= 100 {
			perPage = pp
		}
	}

	return page, perPage
}

// DecodeBody decodes a JSON request body, rejecting unknown shapes lazily
func DecodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteDetail(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
