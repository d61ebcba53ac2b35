package attempt

import (
	"errors"

	"github.com/mind-engage/mindengage-autograde/internal/grading"
	"github.com/mind-engage/mindengage-autograde/internal/rating"
)

var (
	ErrNotFound         = errors.New("submission not found")
	ErrProblemNotFound  = errors.New("problem not found")
	ErrAlreadySubmitted = errors.New("submission already submitted")
	ErrNoAttemptsLeft   = errors.New("no attempts left")
	ErrRatingConflict   = errors.New("rating changed concurrently")
	ErrNotOwner         = errors.New("submission belongs to another user")
	ErrInvalidProblem   = errors.New("invalid problem")
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusGraded     Status = "graded"
	StatusReturned   Status = "returned"
)

// Completed reports whether the status counts as a used attempt.
func (s Status) Completed() bool {
	return s == StatusSubmitted || s == StatusGraded || s == StatusReturned
}

type Problem struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	Rating          float64            `json:"rating"`
	SubmissionCount int                `json:"submission_count"`
	AttemptsAllowed int                `json:"attempts_allowed"` // 0 = unlimited
	Types           []string           `json:"types"`
	CourseIDs       []string           `json:"course_ids"`
	Questions       []grading.Question `json:"questions"`
	CreatedAt       int64              `json:"created_at,omitempty"`
}

type Submission struct {
	ID              string           `json:"id"`
	UserID          string           `json:"user_id"`
	CourseID        string           `json:"course_id"`
	ProblemID       string           `json:"problem_id"`
	AttemptNumber   int              `json:"attempt_number"`
	Status          Status           `json:"status"`
	Score           float64          `json:"score"`
	MaxScore        float64          `json:"max_score"`
	ScorePercentage float64          `json:"score_percentage"`
	StartedAt       int64            `json:"started_at"`
	SubmittedAt     *int64           `json:"submitted_at,omitempty"`
	GradedAt        *int64           `json:"graded_at,omitempty"`
	TimeSpent       int64            `json:"time_spent"` // seconds
	AutoGraded      bool             `json:"auto_graded"`
	Answers         []QuestionAnswer `json:"answers,omitempty"`
}

// QuestionAnswer is the persisted grade of one answer within a submission.
type QuestionAnswer struct {
	QuestionID     string         `json:"question_id"`
	Answer         any            `json:"answer"`
	IsCorrect      bool           `json:"is_correct"`
	PointsEarned   float64        `json:"points_earned"`
	PointsPossible float64        `json:"points_possible"`
	Feedback       *string        `json:"feedback,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	AnsweredAt     int64          `json:"answered_at"`
}

// Standing is a stored rating with the number of updates applied to it.
type Standing struct {
	Rating          float64 `json:"rating"`
	SubmissionCount int     `json:"submission_count"`
}

type TypeStanding struct {
	TypeID string `json:"type_id"`
	Standing
}

// TypeRatingChange records one per-type update applied by a first attempt.
type TypeRatingChange struct {
	TypeID          string  `json:"type_id"`
	NewRating       float64 `json:"new_rating"`
	RatingChange    float64 `json:"rating_change"`
	SubmissionCount int     `json:"submission_count"`
}

// Outcome is returned by SubmitAttempt.
type Outcome struct {
	Submission   Submission              `json:"submission"`
	Grade        grading.SubmissionGrade `json:"grade"`
	FirstAttempt bool                    `json:"first_attempt"`
	Rating       *rating.Update          `json:"rating,omitempty"`
	TypeRatings  []TypeRatingChange      `json:"type_ratings,omitempty"`
}

type RatingView struct {
	Rating          float64     `json:"rating"`
	Display         string      `json:"display"`
	SubmissionCount int         `json:"submission_count"`
	Tier            rating.Tier `json:"tier"`
}

type TypeRatingView struct {
	TypeID string `json:"type_id"`
	RatingView
}

// LearnerRatings is a learner's overall rating and per-type ratings in a course.
type LearnerRatings struct {
	UserID   string           `json:"user_id"`
	CourseID string           `json:"course_id,omitempty"`
	Overall  RatingView       `json:"overall"`
	Types    []TypeRatingView `json:"types"`
}

func viewOf(s Standing) RatingView {
	if s.SubmissionCount == 0 {
		return RatingView{Rating: s.Rating, Tier: rating.TierFor(0)}
	}
	return RatingView{
		Rating:          s.Rating,
		Display:         rating.Format(s.Rating),
		SubmissionCount: s.SubmissionCount,
		Tier:            rating.TierFor(s.Rating),
	}
}
