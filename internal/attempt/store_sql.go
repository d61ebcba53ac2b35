package attempt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-autograde/internal/grading"
	syncx "github.com/mind-engage/mindengage-autograde/internal/sync"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error { return fn(&sqlTx{q: tx}) })
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLStore) PutProblem(ctx context.Context, p Problem) error {
	return s.withTx(ctx, func(q *sql.Tx) error {
		now := time.Now().Unix()
		_, err := q.ExecContext(ctx, `INSERT INTO problems (id,title,attempts_allowed,created_at)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, attempts_allowed=EXCLUDED.attempts_allowed`,
			p.ID, p.Title, p.AttemptsAllowed, now)
		if err != nil {
			return fmt.Errorf("upsert problem: %w", err)
		}

		for _, stmt := range []string{
			`DELETE FROM questions WHERE problem_id=$1`,
			`DELETE FROM problem_types WHERE problem_id=$1`,
			`DELETE FROM course_problems WHERE problem_id=$1`,
		} {
			if _, err := q.ExecContext(ctx, stmt, p.ID); err != nil {
				return fmt.Errorf("reset problem children: %w", err)
			}
		}

		for i, question := range p.Questions {
			cfg, err := json.Marshal(question.Config)
			if err != nil {
				return fmt.Errorf("question %q: encode config: %w", question.ID, err)
			}
			_, err = q.ExecContext(ctx, `INSERT INTO questions
				(id,problem_id,question_type,explanation,points,order_index,config_json)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				question.ID, p.ID, string(question.Type), question.Explanation, question.Points, i, string(cfg))
			if err != nil {
				return fmt.Errorf("insert question %q: %w", question.ID, err)
			}
		}
		for _, t := range p.Types {
			if _, err := q.ExecContext(ctx, `INSERT INTO problem_types (problem_id,type_id) VALUES ($1,$2)`, p.ID, t); err != nil {
				return fmt.Errorf("insert problem type: %w", err)
			}
		}
		for _, c := range p.CourseIDs {
			if _, err := q.ExecContext(ctx, `INSERT INTO course_problems (course_id,problem_id) VALUES ($1,$2)`, c, p.ID); err != nil {
				return fmt.Errorf("link course: %w", err)
			}
		}
		return nil
	})
}

func (s *SQLStore) GetProblem(ctx context.Context, id string) (Problem, error) {
	return getProblem(ctx, s.db, id)
}

func (s *SQLStore) OpenSubmission(ctx context.Context, userID, courseID, problemID string, now int64) (Submission, bool, error) {
	var (
		out     Submission
		resumed bool
	)
	err := s.withTx(ctx, func(q *sql.Tx) error {
		var allowed int
		err := q.QueryRowContext(ctx, `SELECT attempts_allowed FROM problems WHERE id=$1`, problemID).Scan(&allowed)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrProblemNotFound
		}
		if err != nil {
			return err
		}

		row := q.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions
			WHERE user_id=$1 AND problem_id=$2 AND status=$3
			ORDER BY attempt_number DESC LIMIT 1`, userID, problemID, string(StatusInProgress))
		sub, err := scanSubmission(row)
		if err == nil {
			out, resumed = sub, true
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		var used, maxAttempt int
		err = q.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(MAX(attempt_number),0) FROM submissions
			WHERE user_id=$1 AND problem_id=$2`, userID, problemID).Scan(&used, &maxAttempt)
		if err != nil {
			return err
		}
		if allowed > 0 && used >= allowed {
			return ErrNoAttemptsLeft
		}

		out = Submission{
			ID:            uuid.NewString(),
			UserID:        userID,
			CourseID:      courseID,
			ProblemID:     problemID,
			AttemptNumber: maxAttempt + 1,
			Status:        StatusInProgress,
			StartedAt:     now,
		}
		_, err = q.ExecContext(ctx, `INSERT INTO submissions
			(id,user_id,course_id,problem_id,attempt_number,status,started_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			out.ID, out.UserID, out.CourseID, out.ProblemID, out.AttemptNumber, string(out.Status), out.StartedAt)
		if err != nil {
			return fmt.Errorf("insert submission: %w", err)
		}
		return nil
	})
	return out, resumed, err
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return getSubmission(ctx, s.db, id, true)
}

func (s *SQLStore) UserStanding(ctx context.Context, userID string) (Standing, bool, error) {
	return userStanding(ctx, s.db, userID)
}

func (s *SQLStore) TypeStandings(ctx context.Context, userID, courseID string) ([]TypeStanding, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT type_id, rating, submission_count FROM type_ratings
		WHERE user_id=$1 AND course_id=$2 ORDER BY type_id`, userID, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TypeStanding
	for rows.Next() {
		var ts TypeStanding
		if err := rows.Scan(&ts.TypeID, &ts.Rating, &ts.SubmissionCount); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// --- transactional view ---

type sqlTx struct{ q querier }

func (t *sqlTx) GetProblem(ctx context.Context, id string) (Problem, error) {
	return getProblem(ctx, t.q, id)
}

func (t *sqlTx) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return getSubmission(ctx, t.q, id, false)
}

func (t *sqlTx) SaveAnswers(ctx context.Context, submissionID string, answers []QuestionAnswer) error {
	for _, a := range answers {
		answerJSON, err := json.Marshal(a.Answer)
		if err != nil {
			answerJSON = []byte("null")
		}
		detailsJSON, err := json.Marshal(a.Details)
		if err != nil {
			detailsJSON = []byte("null")
		}
		var feedback sql.NullString
		if a.Feedback != nil {
			feedback = sql.NullString{String: *a.Feedback, Valid: true}
		}
		_, err = t.q.ExecContext(ctx, `INSERT INTO question_answers
			(id,submission_id,question_id,answer_json,is_correct,points_earned,points_possible,feedback,details_json,answered_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (submission_id, question_id) DO UPDATE SET
			  answer_json=EXCLUDED.answer_json, is_correct=EXCLUDED.is_correct,
			  points_earned=EXCLUDED.points_earned, points_possible=EXCLUDED.points_possible,
			  feedback=EXCLUDED.feedback, details_json=EXCLUDED.details_json, answered_at=EXCLUDED.answered_at`,
			uuid.NewString(), submissionID, a.QuestionID, string(answerJSON), boolInt(a.IsCorrect),
			a.PointsEarned, a.PointsPossible, feedback, string(detailsJSON), a.AnsweredAt)
		if err != nil {
			return fmt.Errorf("save answer %q: %w", a.QuestionID, err)
		}
	}
	return nil
}

func (t *sqlTx) FinishSubmission(ctx context.Context, sub Submission) error {
	res, err := t.q.ExecContext(ctx, `UPDATE submissions SET
		status=$1, score=$2, max_score=$3, score_percentage=$4,
		submitted_at=$5, graded_at=$6, time_spent=$7, auto_graded=$8
		WHERE id=$9 AND status=$10`,
		string(sub.Status), sub.Score, sub.MaxScore, sub.ScorePercentage,
		nullInt(sub.SubmittedAt), nullInt(sub.GradedAt), sub.TimeSpent, boolInt(sub.AutoGraded),
		sub.ID, string(StatusInProgress))
	if err != nil {
		return fmt.Errorf("finish submission: %w", err)
	}
	return expectOne(res, ErrAlreadySubmitted)
}

func (t *sqlTx) UserStanding(ctx context.Context, userID string) (Standing, bool, error) {
	return userStanding(ctx, t.q, userID)
}

func (t *sqlTx) SetUserStanding(ctx context.Context, userID string, prev *Standing, next Standing) error {
	now := time.Now().Unix()
	if prev == nil {
		res, err := t.q.ExecContext(ctx, `INSERT INTO user_ratings (user_id,rating,submission_count,updated_at)
			VALUES ($1,$2,$3,$4) ON CONFLICT (user_id) DO NOTHING`,
			userID, next.Rating, next.SubmissionCount, now)
		if err != nil {
			return err
		}
		return expectOne(res, ErrRatingConflict)
	}
	res, err := t.q.ExecContext(ctx, `UPDATE user_ratings SET rating=$1, submission_count=$2, updated_at=$3
		WHERE user_id=$4 AND rating=$5 AND submission_count=$6`,
		next.Rating, next.SubmissionCount, now, userID, prev.Rating, prev.SubmissionCount)
	if err != nil {
		return err
	}
	return expectOne(res, ErrRatingConflict)
}

func (t *sqlTx) SetProblemStanding(ctx context.Context, problemID string, prev, next Standing) error {
	res, err := t.q.ExecContext(ctx, `UPDATE problems SET rating=$1, submission_count=$2
		WHERE id=$3 AND rating=$4 AND submission_count=$5`,
		next.Rating, next.SubmissionCount, problemID, prev.Rating, prev.SubmissionCount)
	if err != nil {
		return err
	}
	return expectOne(res, ErrRatingConflict)
}

func (t *sqlTx) TypeStanding(ctx context.Context, userID, courseID, typeID string) (Standing, bool, error) {
	var s Standing
	err := t.q.QueryRowContext(ctx, `SELECT rating, submission_count FROM type_ratings
		WHERE user_id=$1 AND course_id=$2 AND type_id=$3`, userID, courseID, typeID).
		Scan(&s.Rating, &s.SubmissionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Standing{}, false, nil
	}
	if err != nil {
		return Standing{}, false, err
	}
	return s, true, nil
}

func (t *sqlTx) SetTypeStanding(ctx context.Context, userID, courseID, typeID string, prev *Standing, next Standing) error {
	now := time.Now().Unix()
	if prev == nil {
		res, err := t.q.ExecContext(ctx, `INSERT INTO type_ratings (user_id,course_id,type_id,rating,submission_count,updated_at)
			VALUES ($1,$2,$3,$4,$5,$6) ON CONFLICT (user_id, course_id, type_id) DO NOTHING`,
			userID, courseID, typeID, next.Rating, next.SubmissionCount, now)
		if err != nil {
			return err
		}
		return expectOne(res, ErrRatingConflict)
	}
	res, err := t.q.ExecContext(ctx, `UPDATE type_ratings SET rating=$1, submission_count=$2, updated_at=$3
		WHERE user_id=$4 AND course_id=$5 AND type_id=$6 AND rating=$7 AND submission_count=$8`,
		next.Rating, next.SubmissionCount, now, userID, courseID, typeID, prev.Rating, prev.SubmissionCount)
	if err != nil {
		return err
	}
	return expectOne(res, ErrRatingConflict)
}

func (t *sqlTx) AppendEvent(ctx context.Context, e syncx.Event) error {
	return syncx.NewEventRepo(t.q).Append(ctx, e)
}

// --- shared queries ---

func getProblem(ctx context.Context, q querier, id string) (Problem, error) {
	var p Problem
	err := q.QueryRowContext(ctx, `SELECT id,title,rating,submission_count,attempts_allowed,created_at
		FROM problems WHERE id=$1`, id).
		Scan(&p.ID, &p.Title, &p.Rating, &p.SubmissionCount, &p.AttemptsAllowed, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Problem{}, ErrProblemNotFound
	}
	if err != nil {
		return Problem{}, err
	}

	rows, err := q.QueryContext(ctx, `SELECT id,question_type,explanation,points,order_index,config_json
		FROM questions WHERE problem_id=$1 ORDER BY order_index`, id)
	if err != nil {
		return Problem{}, err
	}
	for rows.Next() {
		var (
			qu  grading.Question
			typ string
			cfg string
		)
		if err := rows.Scan(&qu.ID, &typ, &qu.Explanation, &qu.Points, &qu.OrderIndex, &cfg); err != nil {
			rows.Close()
			return Problem{}, err
		}
		qu.Type = grading.QuestionType(typ)
		// a stored config that no longer decodes grades as the zero payload
		qu.Config, _ = grading.DecodeConfig(qu.Type, json.RawMessage(cfg))
		p.Questions = append(p.Questions, qu)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Problem{}, err
	}

	if p.Types, err = queryStrings(ctx, q, `SELECT type_id FROM problem_types WHERE problem_id=$1 ORDER BY type_id`, id); err != nil {
		return Problem{}, err
	}
	if p.CourseIDs, err = queryStrings(ctx, q, `SELECT course_id FROM course_problems WHERE problem_id=$1 ORDER BY course_id`, id); err != nil {
		return Problem{}, err
	}
	return p, nil
}

const submissionColumns = `id,user_id,course_id,problem_id,attempt_number,status,score,max_score,
	score_percentage,started_at,submitted_at,graded_at,time_spent,auto_graded`

func getSubmission(ctx context.Context, q querier, id string, withAnswers bool) (Submission, error) {
	sub, err := scanSubmission(q.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id=$1`, id))
	if err != nil || !withAnswers {
		return sub, err
	}

	rows, err := q.QueryContext(ctx, `SELECT question_id,answer_json,is_correct,points_earned,points_possible,
		feedback,details_json,answered_at FROM question_answers WHERE submission_id=$1 ORDER BY answered_at, question_id`, id)
	if err != nil {
		return Submission{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a        QuestionAnswer
			answer   string
			correct  int
			feedback sql.NullString
			details  string
		)
		if err := rows.Scan(&a.QuestionID, &answer, &correct, &a.PointsEarned, &a.PointsPossible,
			&feedback, &details, &a.AnsweredAt); err != nil {
			return Submission{}, err
		}
		_ = json.Unmarshal([]byte(answer), &a.Answer)
		_ = json.Unmarshal([]byte(details), &a.Details)
		a.IsCorrect = correct != 0
		if feedback.Valid {
			f := feedback.String
			a.Feedback = &f
		}
		sub.Answers = append(sub.Answers, a)
	}
	return sub, rows.Err()
}

func scanSubmission(row *sql.Row) (Submission, error) {
	var (
		s         Submission
		status    string
		submitted sql.NullInt64
		graded    sql.NullInt64
		auto      int
	)
	err := row.Scan(&s.ID, &s.UserID, &s.CourseID, &s.ProblemID, &s.AttemptNumber, &status,
		&s.Score, &s.MaxScore, &s.ScorePercentage, &s.StartedAt, &submitted, &graded, &s.TimeSpent, &auto)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, err
	}
	s.Status = Status(status)
	s.AutoGraded = auto != 0
	if submitted.Valid {
		s.SubmittedAt = &submitted.Int64
	}
	if graded.Valid {
		s.GradedAt = &graded.Int64
	}
	return s, nil
}

func userStanding(ctx context.Context, q querier, userID string) (Standing, bool, error) {
	var s Standing
	err := q.QueryRowContext(ctx, `SELECT rating, submission_count FROM user_ratings WHERE user_id=$1`, userID).
		Scan(&s.Rating, &s.SubmissionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return Standing{}, false, nil
	}
	if err != nil {
		return Standing{}, false, err
	}
	return s, true, nil
}

func queryStrings(ctx context.Context, q querier, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func expectOne(res sql.Result, otherwise error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return otherwise
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
