package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mind-engage/mindengage-autograde/internal/grading"
	"github.com/mind-engage/mindengage-autograde/internal/observability"
	"github.com/mind-engage/mindengage-autograde/internal/rating"
	syncx "github.com/mind-engage/mindengage-autograde/internal/sync"
)

// Invalidator drops cached course aggregates after a submission is graded.
type Invalidator interface {
	Invalidate(ctx context.Context, courseID string) error
}

// Service runs the attempt lifecycle: start, grade, and apply ratings once
// per learner per problem (first attempt only).
type Service struct {
	store       Store
	grader      *grading.Grader
	rater       *rating.Engine
	publisher   syncx.Publisher
	invalidator Invalidator
	siteID      string
	maxRetries  int
	now         func() time.Time
	logger      zerolog.Logger
	tracer      trace.Tracer
}

type Option func(*Service)

func WithGrader(g *grading.Grader) Option { return func(s *Service) { s.grader = g } }
func WithRatingEngine(e *rating.Engine) Option { return func(s *Service) { s.rater = e } }
func WithPublisher(p syncx.Publisher) Option { return func(s *Service) { s.publisher = p } }
func WithInvalidator(i Invalidator) Option { return func(s *Service) { s.invalidator = i } }
func WithSiteID(id string) Option { return func(s *Service) { s.siteID = id } }
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithMaxRetries bounds how often a submission is re-graded after a rating
// compare-and-set conflict.
func WithMaxRetries(n int) Option { return func(s *Service) { s.maxRetries = n } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		grader:     grading.NewGrader(),
		rater:      rating.Default,
		publisher:  syncx.NopPublisher{},
		siteID:     "local",
		maxRetries: 3,
		now:        time.Now,
		logger:     zerolog.Nop(),
		tracer:     otel.Tracer("github.com/mind-engage/mindengage-autograde/internal/attempt"),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With().Str("component", "attempt_service").Logger()
	return s
}

// PutProblem validates and stores a problem definition. Question order follows
// OrderIndex, ties keeping their given order.
func (s *Service) PutProblem(ctx context.Context, p Problem) error {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		return fmt.Errorf("%w: problem id is required", ErrInvalidProblem)
	}
	if p.AttemptsAllowed < 0 {
		return fmt.Errorf("%w: attempts_allowed must not be negative", ErrInvalidProblem)
	}
	if err := grading.ValidateQuestions(p.Questions); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProblem, err)
	}

	qs := append([]grading.Question(nil), p.Questions...)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].OrderIndex < qs[j].OrderIndex })
	for i := range qs {
		qs[i].OrderIndex = i
	}
	p.Questions = qs
	p.Types = dedupe(p.Types)
	p.CourseIDs = dedupe(p.CourseIDs)

	if err := s.store.PutProblem(ctx, p); err != nil {
		return fmt.Errorf("put problem %q: %w", p.ID, err)
	}
	s.logger.Info().Str("problem_id", p.ID).Int("questions", len(qs)).Msg("problem stored")
	return nil
}

// GetProblem loads a problem. Without keys, every question is stripped of
// correctness data so it can be served to learners.
func (s *Service) GetProblem(ctx context.Context, id string, withKeys bool) (Problem, error) {
	p, err := s.store.GetProblem(ctx, id)
	if err != nil {
		return Problem{}, err
	}
	if !withKeys {
		for i, q := range p.Questions {
			p.Questions[i] = grading.StripKeys(q)
		}
	}
	return p, nil
}

// StartAttempt resumes the learner's open attempt on the problem or opens the
// next one.
func (s *Service) StartAttempt(ctx context.Context, userID, courseID, problemID string) (Submission, error) {
	ctx, span := s.tracer.Start(ctx, "attempt.start", trace.WithAttributes(
		attribute.String("attempt.user_id", userID),
		attribute.String("attempt.problem_id", problemID),
	))
	defer span.End()

	sub, resumed, err := s.store.OpenSubmission(ctx, userID, courseID, problemID, s.now().Unix())
	if err != nil {
		span.RecordError(err)
		return Submission{}, err
	}
	span.SetAttributes(attribute.Bool("attempt.resumed", resumed), attribute.Int("attempt.number", sub.AttemptNumber))
	s.logger.Debug().
		Str("submission_id", sub.ID).
		Int("attempt_number", sub.AttemptNumber).
		Bool("resumed", resumed).
		Msg("attempt opened")
	return sub, nil
}

// SubmitAttempt grades an in-progress submission. On the learner's first
// attempt at the problem it also moves the learner's overall rating, the
// problem's rating and the learner's rating for each of the problem's types,
// all in the grading transaction. A rating conflict re-runs the whole
// transaction up to maxRetries times.
func (s *Service) SubmitAttempt(ctx context.Context, submissionID, userID string, answers []grading.Answer) (Outcome, error) {
	ctx, span := s.tracer.Start(ctx, "attempt.submit", trace.WithAttributes(
		attribute.String("attempt.submission_id", submissionID),
		attribute.String("attempt.user_id", userID),
	))
	defer span.End()

	var (
		out   Outcome
		event syncx.Event
		err   error
	)
	for try := 0; ; try++ {
		err = s.store.InTx(ctx, func(tx Tx) error {
			var txErr error
			out, event, txErr = s.grade(ctx, tx, submissionID, userID, answers)
			return txErr
		})
		if !errors.Is(err, ErrRatingConflict) || try >= s.maxRetries {
			break
		}
		observability.RatingConflicts().Inc()
		s.logger.Warn().Str("submission_id", submissionID).Int("try", try+1).Msg("rating conflict, retrying")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}

	sub := out.Submission
	span.SetAttributes(
		attribute.Bool("attempt.first", out.FirstAttempt),
		attribute.Float64("attempt.percentage", sub.ScorePercentage),
	)
	observability.SubmissionsGraded().WithLabelValues(strconv.FormatBool(out.FirstAttempt)).Inc()
	observability.SubmissionPercentage().Observe(sub.ScorePercentage)
	if out.Rating != nil {
		observability.RatingChange().Observe(out.Rating.RatingChange)
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("submission_id", sub.ID).Msg("failed to publish graded event")
	}
	if s.invalidator != nil && sub.CourseID != "" {
		if err := s.invalidator.Invalidate(ctx, sub.CourseID); err != nil {
			s.logger.Warn().Err(err).Str("course_id", sub.CourseID).Msg("failed to invalidate ranking cache")
		}
	}

	s.logger.Info().
		Str("submission_id", sub.ID).
		Str("user_id", sub.UserID).
		Str("problem_id", sub.ProblemID).
		Int("attempt_number", sub.AttemptNumber).
		Float64("percentage", sub.ScorePercentage).
		Msg("submission graded")
	return out, nil
}

type gradedEvent struct {
	SubmissionID  string   `json:"submission_id"`
	UserID        string   `json:"user_id"`
	CourseID      string   `json:"course_id"`
	ProblemID     string   `json:"problem_id"`
	AttemptNumber int      `json:"attempt_number"`
	Score         float64  `json:"score"`
	MaxScore      float64  `json:"max_score"`
	Percentage    float64  `json:"percentage"`
	FirstAttempt  bool     `json:"first_attempt"`
	RatingChange  *float64 `json:"rating_change,omitempty"`
}

func (s *Service) grade(ctx context.Context, tx Tx, submissionID, userID string, answers []grading.Answer) (Outcome, syncx.Event, error) {
	sub, err := tx.GetSubmission(ctx, submissionID)
	if err != nil {
		return Outcome{}, syncx.Event{}, err
	}
	if sub.UserID != userID {
		return Outcome{}, syncx.Event{}, ErrNotOwner
	}
	if sub.Status != StatusInProgress {
		return Outcome{}, syncx.Event{}, ErrAlreadySubmitted
	}
	problem, err := tx.GetProblem(ctx, sub.ProblemID)
	if err != nil {
		return Outcome{}, syncx.Event{}, err
	}

	grade := s.grader.GradeSubmission(problem.Questions, answers)
	now := s.now().Unix()

	given := make(map[string]any, len(answers))
	for _, a := range answers {
		given[a.QuestionID] = a.Value
	}
	rows := make([]QuestionAnswer, 0, len(grade.Results))
	for _, r := range grade.Results {
		rows = append(rows, QuestionAnswer{
			QuestionID:     r.QuestionID,
			Answer:         given[r.QuestionID],
			IsCorrect:      r.IsCorrect,
			PointsEarned:   r.PointsEarned,
			PointsPossible: r.PointsPossible,
			Feedback:       r.Feedback,
			Details:        r.Details,
			AnsweredAt:     now,
		})
	}
	if err := tx.SaveAnswers(ctx, sub.ID, rows); err != nil {
		return Outcome{}, syncx.Event{}, err
	}

	out := Outcome{Grade: grade, FirstAttempt: sub.AttemptNumber == 1}
	if out.FirstAttempt {
		accuracy := 0.0
		if grade.TotalPoints > 0 {
			accuracy = grade.EarnedPoints / grade.TotalPoints
		}
		if err := s.applyRatings(ctx, tx, sub, problem, accuracy, &out); err != nil {
			return Outcome{}, syncx.Event{}, err
		}
	}

	sub.Status = StatusGraded
	sub.Score = grade.EarnedPoints
	sub.MaxScore = grade.TotalPoints
	sub.ScorePercentage = grade.Percentage
	sub.SubmittedAt = &now
	sub.GradedAt = &now
	sub.TimeSpent = max(0, now-sub.StartedAt)
	sub.AutoGraded = true
	if err := tx.FinishSubmission(ctx, sub); err != nil {
		return Outcome{}, syncx.Event{}, err
	}
	sub.Answers = rows
	out.Submission = sub

	payload := gradedEvent{
		SubmissionID:  sub.ID,
		UserID:        sub.UserID,
		CourseID:      sub.CourseID,
		ProblemID:     sub.ProblemID,
		AttemptNumber: sub.AttemptNumber,
		Score:         sub.Score,
		MaxScore:      sub.MaxScore,
		Percentage:    sub.ScorePercentage,
		FirstAttempt:  out.FirstAttempt,
	}
	if out.Rating != nil {
		payload.RatingChange = &out.Rating.RatingChange
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Outcome{}, syncx.Event{}, err
	}
	event := syncx.Event{SiteID: s.siteID, Type: syncx.TypeSubmissionGraded, Key: sub.ID, DataJSON: string(data)}
	if err := tx.AppendEvent(ctx, event); err != nil {
		return Outcome{}, syncx.Event{}, fmt.Errorf("append event: %w", err)
	}
	return out, event, nil
}

func (s *Service) applyRatings(ctx context.Context, tx Tx, sub Submission, problem Problem, accuracy float64, out *Outcome) error {
	p := s.rater.Params()

	user, found, err := tx.UserStanding(ctx, sub.UserID)
	if err != nil {
		return err
	}
	var prevUser *Standing
	if found {
		prevUser = &user
	} else {
		user = Standing{Rating: p.DefaultRating}
	}
	prevProblem := Standing{Rating: problem.Rating, SubmissionCount: problem.SubmissionCount}

	upd := s.rater.UpdateRatings(user.Rating, problem.Rating, accuracy,
		user.SubmissionCount+1, problem.SubmissionCount+1)

	if err := tx.SetUserStanding(ctx, sub.UserID, prevUser,
		Standing{Rating: upd.NewUserRating, SubmissionCount: user.SubmissionCount + 1}); err != nil {
		return err
	}
	if err := tx.SetProblemStanding(ctx, problem.ID, prevProblem,
		Standing{Rating: upd.NewProblemRating, SubmissionCount: problem.SubmissionCount + 1}); err != nil {
		return err
	}
	out.Rating = &upd

	for _, typeID := range problem.Types {
		cur, found, err := tx.TypeStanding(ctx, sub.UserID, sub.CourseID, typeID)
		if err != nil {
			return err
		}
		var (
			prev *Standing
			tu   rating.TypeUpdate
			next Standing
		)
		if found {
			prev = &cur
			tu = s.rater.UpdateTypeRating(cur.Rating, accuracy, cur.SubmissionCount+1)
			next = Standing{Rating: tu.NewRating, SubmissionCount: cur.SubmissionCount + 1}
		} else {
			tu = s.rater.UpdateTypeRating(p.DefaultRating, accuracy, 1)
			next = Standing{Rating: tu.NewRating, SubmissionCount: 1}
		}
		if err := tx.SetTypeStanding(ctx, sub.UserID, sub.CourseID, typeID, prev, next); err != nil {
			return err
		}
		out.TypeRatings = append(out.TypeRatings, TypeRatingChange{
			TypeID:          typeID,
			NewRating:       tu.NewRating,
			RatingChange:    tu.RatingChange,
			SubmissionCount: next.SubmissionCount,
		})
	}
	return nil
}

// GetSubmission returns a submission with its graded answers.
func (s *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return s.store.GetSubmission(ctx, id)
}

// LearnerRatings reports the learner's overall rating and, when courseID is
// set, the per-type ratings in that course.
func (s *Service) LearnerRatings(ctx context.Context, userID, courseID string) (LearnerRatings, error) {
	overall, found, err := s.store.UserStanding(ctx, userID)
	if err != nil {
		return LearnerRatings{}, err
	}
	if !found {
		overall = Standing{Rating: s.rater.Params().DefaultRating}
	}

	out := LearnerRatings{UserID: userID, CourseID: courseID, Overall: viewOf(overall), Types: []TypeRatingView{}}
	if courseID == "" {
		return out, nil
	}
	types, err := s.store.TypeStandings(ctx, userID, courseID)
	if err != nil {
		return LearnerRatings{}, err
	}
	for _, t := range types {
		out.Types = append(out.Types, TypeRatingView{TypeID: t.TypeID, RatingView: viewOf(t.Standing)})
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
