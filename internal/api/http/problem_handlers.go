package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-autograde/internal/attempt"
	"github.com/mind-engage/mindengage-autograde/internal/grading"
)

type putProblemReq struct {
	Title           string          `json:"title" validate:"max=200"`
	AttemptsAllowed int             `json:"attempts_allowed" validate:"gte=0"`
	Types           []string        `json:"types" validate:"dive,required"`
	CourseIDs       []string        `json:"course_ids" validate:"dive,required"`
	Questions       json.RawMessage `json:"questions" validate:"required"`
}

// PUT /problems/{problemID}
//
// Questions go through the full authoring checks (schema and semantic) before
// the problem is stored.
func PutProblemHandler(svc *attempt.Service, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "problemID"))
		var req putProblemReq
		if err := decode(r, v, &req); err != nil {
			fail(w, err)
			return
		}
		qs, err := grading.ParseQuestions(req.Questions)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		p := attempt.Problem{
			ID:              id,
			Title:           req.Title,
			AttemptsAllowed: req.AttemptsAllowed,
			Types:           req.Types,
			CourseIDs:       req.CourseIDs,
			Questions:       qs,
		}
		if err := svc.PutProblem(r.Context(), p); err != nil {
			fail(w, err)
			return
		}
		stored, err := svc.GetProblem(r.Context(), id, true)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stored)
	}
}

// GET /problems/{problemID}?include_keys=true
func GetProblemHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "problemID")
		withKeys, _ := strconv.ParseBool(r.URL.Query().Get("include_keys"))
		p, err := svc.GetProblem(r.Context(), id, withKeys)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
