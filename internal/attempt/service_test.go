package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-autograde/internal/db"
	"github.com/mind-engage/mindengage-autograde/internal/grading"
	"github.com/mind-engage/mindengage-autograde/internal/rating"
	syncx "github.com/mind-engage/mindengage-autograde/internal/sync"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []syncx.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e syncx.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

type recordingInvalidator struct{ courses []string }

func (i *recordingInvalidator) Invalidate(_ context.Context, courseID string) error {
	i.courses = append(i.courses, courseID)
	return nil
}

// steppingClock advances one minute per call.
func steppingClock() func() time.Time {
	t := time.Unix(1_700_000_000, 0)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func f64(v float64) *float64 { return &v }

func sampleProblem(id string, allowed int, types ...string) Problem {
	return Problem{
		ID:              id,
		Title:           "Fractions warm-up",
		AttemptsAllowed: allowed,
		Types:           types,
		CourseIDs:       []string{"course-1"},
		Questions: []grading.Question{
			{ID: "q-num", Type: grading.TypeNumeric, Points: 3, OrderIndex: 2,
				Config: grading.NumericConfig{Answer: f64(0.5), Tolerance: 0.01}},
			{ID: "intro", Type: grading.TypeTextOnly, OrderIndex: 0},
			{ID: "q-choice", Type: grading.TypeSingleChoice, Points: 2, OrderIndex: 1,
				Explanation: "Half of four is two.",
				Config: grading.ChoiceConfig{Options: []grading.ChoiceOption{
					{Text: "1"}, {Text: "2", IsCorrect: true},
				}}},
		},
	}
}

type fixture struct {
	db  *sql.DB
	svc *Service
	pub *recordingPublisher
	inv *recordingInvalidator
	ctx context.Context
}

func newFixture(t *testing.T, opts ...Option) fixture {
	conn := openTestDB(t)
	pub := &recordingPublisher{}
	inv := &recordingInvalidator{}
	base := []Option{
		WithPublisher(pub),
		WithInvalidator(inv),
		WithClock(steppingClock()),
		WithLogger(zerolog.Nop()),
	}
	svc := NewService(NewSQLStore(conn), append(base, opts...)...)
	return fixture{db: conn, svc: svc, pub: pub, inv: inv, ctx: context.Background()}
}

func TestSubmitFirstAttemptAppliesRatings(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.PutProblem(f.ctx, sampleProblem("p1", 0, "fractions", "arithmetic", "fractions")))

	sub, err := f.svc.StartAttempt(f.ctx, "u1", "course-1", "p1")
	require.NoError(t, err)
	require.Equal(t, 1, sub.AttemptNumber)
	require.Equal(t, StatusInProgress, sub.Status)

	again, err := f.svc.StartAttempt(f.ctx, "u1", "course-1", "p1")
	require.NoError(t, err)
	require.Equal(t, sub.ID, again.ID, "open attempt is resumed")

	out, err := f.svc.SubmitAttempt(f.ctx, sub.ID, "u1", []grading.Answer{
		{QuestionID: "q-choice", Type: grading.TypeSingleChoice, Value: float64(1)},
		{QuestionID: "q-num", Type: grading.TypeNumeric, Value: "0.7"},
	})
	require.NoError(t, err)
	require.True(t, out.FirstAttempt)
	require.Equal(t, StatusGraded, out.Submission.Status)
	require.Equal(t, 2.0, out.Submission.Score)
	require.Equal(t, 5.0, out.Submission.MaxScore)
	require.Equal(t, 40.0, out.Submission.ScorePercentage)
	require.Positive(t, out.Submission.TimeSpent)
	require.Len(t, out.Grade.Results, 2)

	want := rating.UpdateRatings(1500, 1500, 0.4, 1, 1)
	require.NotNil(t, out.Rating)
	require.Equal(t, want, *out.Rating)

	wantType := rating.UpdateTypeRating(1500, 0.4, 1)
	require.Len(t, out.TypeRatings, 2)
	for _, tr := range out.TypeRatings {
		require.Equal(t, wantType.NewRating, tr.NewRating)
		require.Equal(t, 1, tr.SubmissionCount)
	}

	problem, err := f.svc.GetProblem(f.ctx, "p1", true)
	require.NoError(t, err)
	require.Equal(t, want.NewProblemRating, problem.Rating)
	require.Equal(t, 1, problem.SubmissionCount)
	require.Equal(t, []string{"intro", "q-choice", "q-num"}, questionIDs(problem.Questions))

	ratings, err := f.svc.LearnerRatings(f.ctx, "u1", "course-1")
	require.NoError(t, err)
	require.Equal(t, want.NewUserRating, ratings.Overall.Rating)
	require.Equal(t, 1, ratings.Overall.SubmissionCount)
	require.Equal(t, rating.TierFor(want.NewUserRating), ratings.Overall.Tier)
	require.Len(t, ratings.Types, 2)
	require.Equal(t, "arithmetic", ratings.Types[0].TypeID)

	stored, err := f.svc.GetSubmission(f.ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, StatusGraded, stored.Status)
	require.True(t, stored.AutoGraded)
	require.NotNil(t, stored.GradedAt)
	require.Len(t, stored.Answers, 2)

	events, err := syncx.NewEventRepo(f.db).Since(f.ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, syncx.TypeSubmissionGraded, events[0].Type)
	require.Equal(t, sub.ID, events[0].Key)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(events[0].DataJSON), &payload))
	require.Equal(t, true, payload["first_attempt"])
	require.Len(t, f.pub.events, 1)
	require.Equal(t, []string{"course-1"}, f.inv.courses)
}

func TestLaterAttemptsDoNotMoveRatings(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.PutProblem(f.ctx, sampleProblem("p1", 0, "fractions")))

	first, err := f.svc.StartAttempt(f.ctx, "u1", "course-1", "p1")
	require.NoError(t, err)
	_, err = f.svc.SubmitAttempt(f.ctx, first.ID, "u1", nil)
	require.NoError(t, err)

	before, err := f.svc.LearnerRatings(f.ctx, "u1", "course-1")
	require.NoError(t, err)

	second, err := f.svc.StartAttempt(f.ctx, "u1", "course-1", "p1")
	require.NoError(t, err)
	require.Equal(t, 2, second.AttemptNumber)

	out, err := f.svc.SubmitAttempt(f.ctx, second.ID, "u1", []grading.Answer{
		{QuestionID: "q-choice", Value: 1},
		{QuestionID: "q-num", Value: 0.5},
	})
	require.NoError(t, err)
	require.False(t, out.FirstAttempt)
	require.Nil(t, out.Rating)
	require.Empty(t, out.TypeRatings)
	require.Equal(t, 100.0, out.Submission.ScorePercentage)

	after, err := f.svc.LearnerRatings(f.ctx, "u1", "course-1")
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestZeroScoreFirstAttemptLowersRating(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.PutProblem(f.ctx, sampleProblem("p1", 0)))

	sub, err := f.svc.StartAttempt(f.ctx, "u1", "course-1", "p1")
	require.NoError(t, err)
	out, err := f.svc.SubmitAttempt(f.ctx, sub.ID, "u1", nil)
	require.NoError(t, err)
	require.Zero(t, out.Submission.Score)
	require.Less(t, out.Rating.NewUserRating, 1500.0)
	require.LessOrEqual(t, out.Rating.RatingChange, -10.0)
}

func TestExistingTypeRatingIsUpdatedWithNextCount(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.PutProblem(f.ctx, sampleProblem("p1", 0, "fractions")))
	require.NoError(t, f.svc.PutProblem(f.ctx, sampleProblem("p2", 0, "fractions")))

	perfect := []grading.Answer{{QuestionID: "q-choice", Value: 1}, {QuestionID: "q-num", Value: 0.5}}

	s1, err := f.svc.StartAttempt(f.ctx, "u1", "course-1", "p1")
	require.NoError(t, err)
	o1, err := f.svc.SubmitAttempt(f.ctx, s1.ID, "u1", perfect)
	require.NoError(t, err)

	s2, err := f.svc.StartAttempt(f.ctx, "u1", "course-1", "p2")
	require.NoError(t, err)
	o2, err := f.svc.SubmitAttempt(f.ctx, s2.ID, "u1", perfect)
	require.NoError(t, err)

	want := rating.UpdateTypeRating(o1.TypeRatings[0].NewRating, 1, 2)
	require.Equal(t, want.NewRating, o2.TypeRatings[0].NewRating)
	require.Equal(t, 2, o2.TypeRatings[0].SubmissionCount)

	wantUser := rating.UpdateRatings(o1.Rating.NewUserRating, 1500, 1, 2, 1)
	require.Equal(t, wantUser.NewUserRating, o2.Rating.NewUserRating)
}

func TestSubmitErrors(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.PutProblem(f.ctx, sampleProblem("p1", 0)))
	sub, err := f.svc.StartAttempt(f.ctx, "u1", "course-1", "p1")
	require.NoError(t, err)

	_, err = f.svc.SubmitAttempt(f.ctx, sub.ID, "intruder", nil)
	require.ErrorIs(t, err, ErrNotOwner)

	_, err = f.svc.SubmitAttempt(f.ctx, "missing", "u1", nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.SubmitAttempt(f.ctx, sub.ID, "u1", nil)
	require.NoError(t, err)
	_, err = f.svc.SubmitAttempt(f.ctx, sub.ID, "u1", nil)
	require.ErrorIs(t, err, ErrAlreadySubmitted)

	_, err = f.svc.StartAttempt(f.ctx, "u1", "course-1", "nope")
	require.ErrorIs(t, err, ErrProblemNotFound)
}

func TestAttemptsAllowedIsEnforced(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.PutProblem(f.ctx, sampleProblem("p1", 1)))

	sub, err := f.svc.StartAttempt(f.ctx, "u1", "course-1", "p1")
	require.NoError(t, err)
	_, err = f.svc.SubmitAttempt(f.ctx, sub.ID, "u1", nil)
	require.NoError(t, err)

	_, err = f.svc.StartAttempt(f.ctx, "u1", "course-1", "p1")
	require.ErrorIs(t, err, ErrNoAttemptsLeft)

	other, err := f.svc.StartAttempt(f.ctx, "u2", "course-1", "p1")
	require.NoError(t, err)
	require.Equal(t, 1, other.AttemptNumber)
}

func TestGetProblemStripsKeysForLearners(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.PutProblem(f.ctx, sampleProblem("p1", 0)))

	p, err := f.svc.GetProblem(f.ctx, "p1", false)
	require.NoError(t, err)
	for _, q := range p.Questions {
		require.Empty(t, q.Explanation)
		if c, ok := q.Config.(grading.ChoiceConfig); ok {
			for _, o := range c.Options {
				require.False(t, o.IsCorrect)
			}
		}
		if n, ok := q.Config.(grading.NumericConfig); ok {
			require.Nil(t, n.Answer)
		}
	}

	_, err = f.svc.GetProblem(f.ctx, "missing", false)
	require.ErrorIs(t, err, ErrProblemNotFound)
}

func TestPutProblemRejectsInvalidQuestions(t *testing.T) {
	f := newFixture(t)
	p := sampleProblem("p1", 0)
	p.Questions = append(p.Questions, grading.Question{
		ID:   "m",
		Type: grading.TypeMatching,
		Config: grading.MatchingConfig{
			Items:   []grading.MatchItem{{Text: "Dog", CorrectAnswer: "woof"}},
			Choices: []grading.MatchChoice{{ID: "bark"}},
		},
	})
	err := f.svc.PutProblem(f.ctx, p)
	require.ErrorIs(t, err, ErrInvalidProblem)
	require.ErrorContains(t, err, "not found in choices")

	require.ErrorIs(t, f.svc.PutProblem(f.ctx, Problem{ID: " "}), ErrInvalidProblem)
}

func TestLearnerWithoutHistoryIsUnrated(t *testing.T) {
	f := newFixture(t)
	r, err := f.svc.LearnerRatings(f.ctx, "nobody", "course-1")
	require.NoError(t, err)
	require.Equal(t, 1500.0, r.Overall.Rating)
	require.Equal(t, "Unrated", r.Overall.Tier.Title)
	require.Empty(t, r.Overall.Display)
	require.Empty(t, r.Types)
}

// conflictingStore fails the first n rating writes with ErrRatingConflict.
type conflictingStore struct {
	Store
	remaining int
}

func (s *conflictingStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.Store.InTx(ctx, func(tx Tx) error {
		if s.remaining > 0 {
			s.remaining--
			return fn(conflictingTx{tx})
		}
		return fn(tx)
	})
}

type conflictingTx struct{ Tx }

func (conflictingTx) SetUserStanding(context.Context, string, *Standing, Standing) error {
	return ErrRatingConflict
}

func TestRatingConflictRetriesWholeTransaction(t *testing.T) {
	conn := openTestDB(t)
	store := &conflictingStore{Store: NewSQLStore(conn), remaining: 2}
	svc := NewService(store, WithMaxRetries(3))
	ctx := context.Background()

	require.NoError(t, svc.PutProblem(ctx, sampleProblem("p1", 0, "fractions")))
	sub, err := svc.StartAttempt(ctx, "u1", "course-1", "p1")
	require.NoError(t, err)

	out, err := svc.SubmitAttempt(ctx, sub.ID, "u1", []grading.Answer{{QuestionID: "q-choice", Value: 1}})
	require.NoError(t, err)
	require.Equal(t, 0, store.remaining)
	require.NotNil(t, out.Rating)

	stored, err := svc.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, stored.Answers, 2, "rolled back attempts leave no duplicate answers")

	events, err := syncx.NewEventRepo(conn).Since(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestRatingConflictGivesUpAfterMaxRetries(t *testing.T) {
	conn := openTestDB(t)
	store := &conflictingStore{Store: NewSQLStore(conn), remaining: 100}
	svc := NewService(store, WithMaxRetries(2))
	ctx := context.Background()

	require.NoError(t, svc.PutProblem(ctx, sampleProblem("p1", 0)))
	sub, err := svc.StartAttempt(ctx, "u1", "course-1", "p1")
	require.NoError(t, err)

	_, err = svc.SubmitAttempt(ctx, sub.ID, "u1", nil)
	require.ErrorIs(t, err, ErrRatingConflict)
	require.Equal(t, 97, store.remaining)

	stored, err := svc.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, StatusInProgress, stored.Status)
	require.Empty(t, stored.Answers)
}

func questionIDs(qs []grading.Question) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.ID
	}
	return out
}
