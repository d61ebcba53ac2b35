package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-autograde/internal/attempt"
	"github.com/mind-engage/mindengage-autograde/internal/grading"
)

type startAttemptReq struct {
	UserID    string `json:"user_id" validate:"required"`
	CourseID  string `json:"course_id"`
	ProblemID string `json:"problem_id" validate:"required"`
}

// POST /attempts
func StartAttemptHandler(svc *attempt.Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startAttemptReq
		if err := decode(r, v, &req); err != nil {
			fail(w, err)
			return
		}
		sub, err := svc.StartAttempt(r.Context(), req.UserID, req.CourseID, req.ProblemID)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}

type submitAttemptReq struct {
	UserID  string           `json:"user_id" validate:"required"`
	Answers []grading.Answer `json:"answers"`
}

// POST /attempts/{attemptID}/submit
func SubmitAttemptHandler(svc *attempt.Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var req submitAttemptReq
		if err := decode(r, v, &req); err != nil {
			fail(w, err)
			return
		}
		out, err := svc.SubmitAttempt(r.Context(), id, req.UserID, req.Answers)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /attempts/{attemptID}
func GetAttemptHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := svc.GetSubmission(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sub)
	}
}
