package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mind-engage/mindengage-autograde/internal/attempt"
	"github.com/mind-engage/mindengage-autograde/internal/grading"
	"github.com/mind-engage/mindengage-autograde/internal/ranking"
	"github.com/mind-engage/mindengage-autograde/internal/rating"
	syncx "github.com/mind-engage/mindengage-autograde/internal/sync"
)

// Deps are the services behind the API routes.
type Deps struct {
	Grader   *grading.Grader
	Rating   *rating.Engine
	Attempts *attempt.Service
	Ranking  *ranking.Service
	Events   *syncx.EventRepo
	Validate *validator.Validate
}

// Mount registers every API route on r.
func Mount(r chi.Router, d Deps) {
	if d.Grader == nil {
		d.Grader = grading.NewGrader()
	}
	if d.Rating == nil {
		d.Rating = rating.Default
	}
	if d.Validate == nil {
		d.Validate = validator.New(validator.WithRequiredStructEnabled())
	}

	// stateless engines
	r.Post("/grade", GradeHandler(d.Grader, d.Validate))
	r.Post("/questions/validate", ValidateQuestionsHandler())
	r.Post("/ratings/preview", RatingPreviewHandler(d.Rating, d.Validate))

	if d.Attempts != nil {
		r.Put("/problems/{problemID}", PutProblemHandler(d.Attempts, d.Validate))
		r.Get("/problems/{problemID}", GetProblemHandler(d.Attempts))

		r.Post("/attempts", StartAttemptHandler(d.Attempts, d.Validate))
		r.Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(d.Attempts, d.Validate))
		r.Get("/attempts/{attemptID}", GetAttemptHandler(d.Attempts))

		r.Get("/users/{userID}/ratings", LearnerRatingsHandler(d.Attempts))
	}
	if d.Ranking != nil {
		r.Get("/courses/{courseID}/ranking", CourseRankingHandler(d.Ranking))
	}
	if d.Events != nil {
		r.Get("/events", EventsHandler(d.Events))
	}
}
