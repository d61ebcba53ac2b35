package grading

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QuestionType is the closed set of question variants the engine can grade.
type QuestionType string

const (
	TypeSingleChoice   QuestionType = "single_choice"
	TypeTrueFalse      QuestionType = "true_false"
	TypeMultipleChoice QuestionType = "multiple_choice"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeFillBlank      QuestionType = "fill_blank"
	TypeMatching       QuestionType = "matching"
	TypeNumeric        QuestionType = "numeric"
	TypeTextOnly       QuestionType = "text_only"
)

// Known reports whether t belongs to the closed variant set.
func (t QuestionType) Known() bool {
	switch t {
	case TypeSingleChoice, TypeTrueFalse, TypeMultipleChoice, TypeShortAnswer,
		TypeFillBlank, TypeMatching, TypeNumeric, TypeTextOnly:
		return true
	}
	return false
}

// Graded reports whether questions of this type count toward submission totals.
func (t QuestionType) Graded() bool { return t != TypeTextOnly }

// Question is an instructor-defined graded unit. It is immutable during grading.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"questionType"`
	Config      Config       `json:"config"`
	Points      float64      `json:"points"`
	Explanation string       `json:"explanation,omitempty"`
	OrderIndex  int          `json:"orderIndex,omitempty"`
}

// UnmarshalJSON decodes config into the payload shape selected by questionType.
// A null points value decodes as 0.
func (q *Question) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          string          `json:"id"`
		Type        QuestionType    `json:"questionType"`
		Config      json.RawMessage `json:"config"`
		Points      *float64        `json:"points"`
		Explanation *string         `json:"explanation"`
		OrderIndex  int             `json:"orderIndex"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cfg, err := DecodeConfig(raw.Type, raw.Config)
	if err != nil {
		return fmt.Errorf("question %q: %w", raw.ID, err)
	}
	*q = Question{
		ID:         raw.ID,
		Type:       raw.Type,
		Config:     cfg,
		OrderIndex: raw.OrderIndex,
	}
	if raw.Points != nil {
		q.Points = *raw.Points
	}
	if raw.Explanation != nil {
		q.Explanation = *raw.Explanation
	}
	return nil
}

// DecodeConfig decodes a raw config document for the given question type.
// Empty or null documents yield a nil Config.
func DecodeConfig(t QuestionType, raw json.RawMessage) (Config, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch t {
	case TypeSingleChoice, TypeTrueFalse:
		var c ChoiceConfig
		return decodeInto(trimmed, &c)
	case TypeMultipleChoice:
		var c MultipleChoiceConfig
		return decodeInto(trimmed, &c)
	case TypeShortAnswer:
		var c ShortAnswerConfig
		return decodeInto(trimmed, &c)
	case TypeFillBlank:
		var c FillBlankConfig
		return decodeInto(trimmed, &c)
	case TypeMatching:
		var c MatchingConfig
		return decodeInto(trimmed, &c)
	case TypeNumeric:
		var c NumericConfig
		return decodeInto(trimmed, &c)
	case TypeTextOnly:
		return TextOnlyConfig{}, nil
	default:
		return UnknownConfig{Raw: append(json.RawMessage(nil), trimmed...)}, nil
	}
}

func decodeInto[T Config](data []byte, dst *T) (Config, error) {
	if err := json.Unmarshal(data, dst); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return *dst, nil
}

// Answer is one learner response to one question within a submission.
// Value is untyped; its expected shape depends on Type.
type Answer struct {
	QuestionID string       `json:"questionId"`
	Type       QuestionType `json:"questionType"`
	Value      any          `json:"answer"`
}

// GradeResult is the outcome of grading a single question/answer pair.
type GradeResult struct {
	QuestionID     string         `json:"questionId"`
	IsCorrect      bool           `json:"isCorrect"`
	PointsEarned   float64        `json:"pointsEarned"`
	PointsPossible float64        `json:"pointsPossible"`
	Feedback       *string        `json:"feedback,omitempty"`
	Explanation    *string        `json:"explanation"`
	Details        map[string]any `json:"details,omitempty"`
}

// SubmissionGrade aggregates the graded (non text_only) results of one attempt.
type SubmissionGrade struct {
	Results      []GradeResult `json:"results"`
	TotalPoints  float64       `json:"totalPoints"`
	EarnedPoints float64       `json:"earnedPoints"`
	Percentage   float64       `json:"percentage"`
}
