package grading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGradeSubmissionSkipsTextOnlyAndGradesMissingAnswers(t *testing.T) {
	questions := []Question{
		{ID: "intro", Type: TypeTextOnly, Points: 10},
		choiceQuestion(2),
		{ID: "n", Type: TypeNumeric, Points: 3, Config: NumericConfig{Answer: f64(7)}},
	}
	answers := []Answer{
		{QuestionID: "q-single", Type: TypeSingleChoice, Value: float64(1)},
		{QuestionID: "intro", Type: TypeTextOnly, Value: "ignored"},
	}

	out := GradeSubmission(questions, answers)
	require.Len(t, out.Results, 2)
	require.Equal(t, "q-single", out.Results[0].QuestionID)
	require.Equal(t, "n", out.Results[1].QuestionID)
	require.False(t, out.Results[1].IsCorrect)
	require.Equal(t, 5.0, out.TotalPoints)
	require.Equal(t, 2.0, out.EarnedPoints)
	require.Equal(t, 40.0, out.Percentage)
}

func TestGradeSubmissionPercentageRounding(t *testing.T) {
	questions := []Question{
		{ID: "a", Type: TypeNumeric, Points: 1, Config: NumericConfig{Answer: f64(1)}},
		{ID: "b", Type: TypeNumeric, Points: 1, Config: NumericConfig{Answer: f64(2)}},
		{ID: "c", Type: TypeNumeric, Points: 1, Config: NumericConfig{Answer: f64(3)}},
	}
	out := GradeSubmission(questions, []Answer{{QuestionID: "a", Value: 1}})
	require.Equal(t, 33.33, out.Percentage)

	out = GradeSubmission(questions, []Answer{{QuestionID: "a", Value: 1}, {QuestionID: "b", Value: 2}})
	require.Equal(t, 66.67, out.Percentage)
}

func TestGradeSubmissionLaterDuplicateAnswerWins(t *testing.T) {
	questions := []Question{choiceQuestion(1)}
	out := GradeSubmission(questions, []Answer{
		{QuestionID: "q-single", Value: 1},
		{QuestionID: "q-single", Value: 0},
	})
	require.Zero(t, out.EarnedPoints)
}

func TestGradeSubmissionWithNoGradedQuestions(t *testing.T) {
	out := GradeSubmission([]Question{{ID: "intro", Type: TypeTextOnly}}, nil)
	require.Empty(t, out.Results)
	require.Zero(t, out.TotalPoints)
	require.Zero(t, out.Percentage)

	out = GradeSubmission(nil, nil)
	require.Empty(t, out.Results)
}

func TestGradeSubmissionEarnedNeverExceedsTotal(t *testing.T) {
	questions := []Question{
		multiQuestion(2),
		{ID: "fb", Type: TypeFillBlank, Points: 3, Config: FillBlankConfig{Blanks: []Blank{
			{Index: 0, Answers: []string{"a"}}, {Index: 1, Answers: []string{"b"}}, {Index: 2, Answers: []string{"c"}},
		}}},
	}
	answers := []Answer{
		{QuestionID: "q-multi", Value: []any{float64(0), float64(1)}},
		{QuestionID: "fb", Value: []any{"a", "b", "c"}},
	}
	out := GradeSubmission(questions, answers)
	require.LessOrEqual(t, out.EarnedPoints, out.TotalPoints)
	require.Equal(t, 100.0, out.Percentage)
}

func TestGradeSubmissionFromJSONPayload(t *testing.T) {
	questionsJSON := `[
	  {"id": "q1", "questionType": "single_choice", "points": 1,
	   "config": {"options": [{"text": "A", "isCorrect": false}, {"text": "B", "isCorrect": true}]}},
	  {"id": "q2", "questionType": "fill_blank", "points": 4,
	   "config": {"blanks": [{"index": 0, "answers": ["cat"]}]}},
	  {"id": "q3", "questionType": "matching", "points": 2,
	   "config": {"items": [{"text": "Dog", "correctAnswer": "bark"}, {"text": "Cat", "correctAnswer": "meow"}],
	              "choices": ["bark", "meow"]}},
	  {"id": "info", "questionType": "text_only", "points": null, "config": null}
	]`
	answersJSON := `[
	  {"questionId": "q1", "questionType": "single_choice", "answer": 1},
	  {"questionId": "q2", "questionType": "fill_blank", "answer": {"0": "CAT"}},
	  {"questionId": "q3", "questionType": "matching", "answer": {"Dog": "bark", "Cat": "bark"}}
	]`

	var questions []Question
	require.NoError(t, json.Unmarshal([]byte(questionsJSON), &questions))
	var answers []Answer
	require.NoError(t, json.Unmarshal([]byte(answersJSON), &answers))

	out := GradeSubmission(questions, answers)
	require.Len(t, out.Results, 3)
	require.Equal(t, 7.0, out.TotalPoints)
	require.Equal(t, 6.0, out.EarnedPoints)
	require.Equal(t, 85.71, out.Percentage)
}
