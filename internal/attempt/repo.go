package attempt

import (
	"context"

	syncx "github.com/mind-engage/mindengage-autograde/internal/sync"
)

// Store persists problems, submissions and ratings.
type Store interface {
	PutProblem(ctx context.Context, p Problem) error
	GetProblem(ctx context.Context, id string) (Problem, error) // full problem, with answer keys

	// OpenSubmission resumes the newest in-progress submission of userID on
	// problemID, or creates attempt max+1. resumed reports which happened.
	OpenSubmission(ctx context.Context, userID, courseID, problemID string, now int64) (sub Submission, resumed bool, err error)
	GetSubmission(ctx context.Context, id string) (Submission, error) // with answers

	UserStanding(ctx context.Context, userID string) (Standing, bool, error)
	TypeStandings(ctx context.Context, userID, courseID string) ([]TypeStanding, error)

	// InTx runs fn in one transaction, committed only when fn returns nil.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the transactional view used while grading a submission.
//
// The Set*Standing methods are compare-and-set: they apply next only when the
// stored value still equals prev (a nil prev means "no row yet") and return
// ErrRatingConflict otherwise.
type Tx interface {
	GetProblem(ctx context.Context, id string) (Problem, error)
	GetSubmission(ctx context.Context, id string) (Submission, error)
	SaveAnswers(ctx context.Context, submissionID string, answers []QuestionAnswer) error
	// FinishSubmission moves an in-progress submission to graded; it returns
	// ErrAlreadySubmitted when the submission has left in_progress meanwhile.
	FinishSubmission(ctx context.Context, sub Submission) error

	UserStanding(ctx context.Context, userID string) (Standing, bool, error)
	SetUserStanding(ctx context.Context, userID string, prev *Standing, next Standing) error
	SetProblemStanding(ctx context.Context, problemID string, prev, next Standing) error
	TypeStanding(ctx context.Context, userID, courseID, typeID string) (Standing, bool, error)
	SetTypeStanding(ctx context.Context, userID, courseID, typeID string, prev *Standing, next Standing) error

	AppendEvent(ctx context.Context, e syncx.Event) error
}
