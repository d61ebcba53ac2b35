package grading

import "math"

// Strategy grades one question variant. Strategies never fail: a missing or
// malformed answer yields an incorrect, zero-point result. points is the
// question's maximum score, already sanitised by the Grader.
type Strategy interface {
	Grade(q Question, points float64, answer any) GradeResult
}

// Grader routes by question type to the correct Strategy. A Grader holds no
// per-call state and is safe for concurrent use.
type Grader struct {
	strategies map[QuestionType]Strategy
}

// Engine options

type Option func(*settings)

type settings struct {
	CacheRegex bool // memoise compiled short_answer/fill_blank patterns
}

func WithRegexCache(b bool) Option { return func(s *settings) { s.CacheRegex = b } }

// NewGrader installs the built-in strategies.
func NewGrader(opts ...Option) *Grader {
	cfg := &settings{CacheRegex: true}
	for _, o := range opts {
		o(cfg)
	}
	m := newMatcher(cfg.CacheRegex)
	return &Grader{
		strategies: map[QuestionType]Strategy{
			TypeSingleChoice:   singleChoiceStrategy{},
			TypeTrueFalse:      singleChoiceStrategy{},
			TypeMultipleChoice: multipleChoiceStrategy{},
			TypeShortAnswer:    shortAnswerStrategy{m: m},
			TypeFillBlank:      fillBlankStrategy{m: m},
			TypeMatching:       matchingStrategy{},
			TypeNumeric:        numericStrategy{},
			TypeTextOnly:       textOnlyStrategy{},
		},
	}
}

var defaultGrader = NewGrader()

// GradeQuestion grades q against a using the default Grader.
func GradeQuestion(q Question, a Answer) GradeResult { return defaultGrader.GradeQuestion(q, a) }

// GradeSubmission grades a full attempt using the default Grader.
func GradeSubmission(questions []Question, answers []Answer) SubmissionGrade {
	return defaultGrader.GradeSubmission(questions, answers)
}

// GradeQuestion maps one (question, answer) pair to a GradeResult.
// Unrecognised types are incorrect with the question's points still possible.
func (g *Grader) GradeQuestion(q Question, a Answer) GradeResult {
	points := q.Points
	if points < 0 || math.IsNaN(points) {
		points = 0
	}

	var res GradeResult
	if s, ok := g.strategies[q.Type]; ok {
		res = s.Grade(q, points, a.Value)
	} else {
		res = GradeResult{PointsPossible: points, Explanation: optional(q.Explanation)}
	}
	res.QuestionID = q.ID

	// 0 <= earned <= possible holds for every strategy.
	if math.IsNaN(res.PointsEarned) || res.PointsEarned < 0 {
		res.PointsEarned = 0
	}
	if res.PointsEarned > res.PointsPossible {
		res.PointsEarned = res.PointsPossible
	}
	return res
}

// GradeSubmission grades every non text_only question in order. Answers are
// looked up by question id; a later duplicate replaces an earlier one, and a
// missing answer grades as unanswered.
func (g *Grader) GradeSubmission(questions []Question, answers []Answer) SubmissionGrade {
	byID := make(map[string]Answer, len(answers))
	for _, a := range answers {
		byID[a.QuestionID] = a
	}

	out := SubmissionGrade{Results: make([]GradeResult, 0, len(questions))}
	for _, q := range questions {
		if !q.Type.Graded() {
			continue
		}
		a, ok := byID[q.ID]
		if !ok {
			a = Answer{QuestionID: q.ID, Type: q.Type}
		}
		res := g.GradeQuestion(q, a)
		out.Results = append(out.Results, res)
		out.TotalPoints += res.PointsPossible
		out.EarnedPoints += res.PointsEarned
	}

	if out.TotalPoints > 0 {
		out.Percentage = round2(out.EarnedPoints / out.TotalPoints * 100)
	}
	return out
}

// --- Strategies ---

type textOnlyStrategy struct{}

func (textOnlyStrategy) Grade(Question, float64, any) GradeResult {
	return GradeResult{IsCorrect: true}
}

// helpers

// round2 rounds to two decimals, halves toward +Inf.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(vals ...string) *string {
	for _, v := range vals {
		if v != "" {
			return &v
		}
	}
	return nil
}
