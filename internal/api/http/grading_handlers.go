package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-autograde/internal/grading"
	"github.com/mind-engage/mindengage-autograde/internal/rating"
)

type gradeReq struct {
	Questions []grading.Question `json:"questions" validate:"required"`
	Answers   []grading.Answer   `json:"answers"`
}

// POST /grade
//
// Stateless grading of an ad-hoc question set; nothing is stored.
func GradeHandler(g *grading.Grader, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gradeReq
		if err := decode(r, v, &req); err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g.GradeSubmission(req.Questions, req.Answers))
	}
}

// POST /questions/validate
func ValidateQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		qs, err := grading.ParseQuestions(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"valid": true, "questions": len(qs)})
	}
}

type previewReq struct {
	UserRating         float64  `json:"userRating" validate:"gt=0"`
	ProblemRating      float64  `json:"problemRating" validate:"gt=0"`
	Accuracy           *float64 `json:"accuracy" validate:"required,gte=0,lte=1"`
	UserSubmissions    int      `json:"userSubmissions" validate:"gte=0"`
	ProblemSubmissions int      `json:"problemSubmissions" validate:"gte=0"`
}

type previewResp struct {
	rating.Update
	Tier rating.Tier `json:"tier"`
}

// POST /ratings/preview
//
// Runs one rating update without persisting it.
func RatingPreviewHandler(e *rating.Engine, v *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req previewReq
		if err := decode(r, v, &req); err != nil {
			fail(w, err)
			return
		}
		upd := e.UpdateRatings(req.UserRating, req.ProblemRating, *req.Accuracy,
			req.UserSubmissions, req.ProblemSubmissions)
		writeJSON(w, http.StatusOK, previewResp{Update: upd, Tier: rating.TierFor(upd.NewUserRating)})
	}
}
