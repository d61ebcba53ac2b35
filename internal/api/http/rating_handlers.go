package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-autograde/internal/attempt"
	"github.com/mind-engage/mindengage-autograde/internal/ranking"
)

// GET /users/{userID}/ratings?course_id=
func LearnerRatingsHandler(svc *attempt.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := svc.LearnerRatings(r.Context(), chi.URLParam(r, "userID"), r.URL.Query().Get("course_id"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /courses/{courseID}/ranking
func CourseRankingHandler(svc *ranking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.Course(r.Context(), chi.URLParam(r, "courseID"))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
