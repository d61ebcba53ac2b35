package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-autograde/internal/attempt"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into dst and runs struct validation on it.
func decode(r *http.Request, v *validator.Validate, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadJSON
	}
	return v.Struct(dst)
}

var errBadJSON = errors.New("bad json")

// statusOf maps service errors onto HTTP statuses.
func statusOf(err error) int {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, errBadJSON), errors.As(err, &validationErrors),
		errors.Is(err, attempt.ErrInvalidProblem):
		return http.StatusBadRequest
	case errors.Is(err, attempt.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, attempt.ErrNotFound), errors.Is(err, attempt.ErrProblemNotFound):
		return http.StatusNotFound
	case errors.Is(err, attempt.ErrAlreadySubmitted), errors.Is(err, attempt.ErrNoAttemptsLeft),
		errors.Is(err, attempt.ErrRatingConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func fail(w http.ResponseWriter, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	http.Error(w, msg, status)
}
