package grading

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuestionsAcceptsEveryType(t *testing.T) {
	doc := `[
	  {"id": "1", "questionType": "single_choice", "points": 1,
	   "config": {"options": [{"text": "a", "isCorrect": true}, {"text": "b", "isCorrect": false}]}},
	  {"id": "2", "questionType": "true_false", "points": 1,
	   "config": {"options": [{"text": "True", "isCorrect": true}, {"text": "False", "isCorrect": false}]}},
	  {"id": "3", "questionType": "multiple_choice", "points": 2,
	   "config": {"options": [{"text": "a", "isCorrect": true, "partialCredit": 1}, {"text": "b", "isCorrect": true, "partialCredit": 1}]}},
	  {"id": "4", "questionType": "short_answer", "points": 1,
	   "config": {"answers": ["^yes$"], "isRegex": true}},
	  {"id": "5", "questionType": "fill_blank", "points": 2,
	   "config": {"blanks": [{"index": 0, "answers": ["x"]}]}},
	  {"id": "6", "questionType": "matching", "points": 2,
	   "config": {"items": [{"text": "Dog", "correctAnswer": "d"}], "choices": [{"id": "d", "text": "Bark"}]}},
	  {"id": "7", "questionType": "numeric", "points": 1,
	   "config": {"answer": 3.14, "tolerance": 0.01, "unit": "rad"}},
	  {"id": "8", "questionType": "text_only"}
	]`

	qs, err := ParseQuestions([]byte(doc))
	require.NoError(t, err)
	require.Len(t, qs, 8)

	require.IsType(t, ChoiceConfig{}, qs[0].Config)
	require.IsType(t, MultipleChoiceConfig{}, qs[2].Config)
	require.IsType(t, MatchingConfig{}, qs[5].Config)
	num := qs[6].Config.(NumericConfig)
	require.NotNil(t, num.Answer)
	require.Equal(t, 3.14, *num.Answer)
	require.Equal(t, "rad", num.Unit)
	require.Nil(t, qs[7].Config)
}

func TestParseQuestionsReportsAllProblems(t *testing.T) {
	doc := `[
	  {"id": "1", "questionType": "numeric", "points": 1, "config": {"tolerance": 1}},
	  {"id": "2", "questionType": "essay", "points": 1, "config": {}},
	  {"id": "3", "questionType": "matching", "points": 1,
	   "config": {"items": [{"text": "Dog", "correctAnswer": "woof"}], "choices": ["bark"]}},
	  {"id": "3", "questionType": "short_answer", "points": 1, "config": {"answers": ["("], "isRegex": true}},
	  {"id": "5", "questionType": "single_choice", "points": -1, "config": {"options": []}},
	  {"id": "6", "questionType": "fill_blank", "points": 1}
	]`

	_, err := ParseQuestions([]byte(doc))
	require.Error(t, err)
	msg := err.Error()
	require.Contains(t, msg, "question #0")
	require.Contains(t, msg, `unknown type "essay"`)
	require.Contains(t, msg, `matching item answer "woof" not found in choices`)
	require.Contains(t, msg, `duplicate question id "3"`)
	require.Contains(t, msg, `invalid pattern "("`)
	require.Contains(t, msg, "question #4")
	require.Contains(t, msg, "config is required")
}

func TestParseQuestionsRejectsNonArray(t *testing.T) {
	_, err := ParseQuestions([]byte(`{"id": "1"}`))
	require.ErrorContains(t, err, "JSON array")
}

func TestValidateQuestionsNegativePartialCredit(t *testing.T) {
	err := ValidateQuestions([]Question{{
		ID:     "mc",
		Type:   TypeMultipleChoice,
		Points: 1,
		Config: MultipleChoiceConfig{Options: []ChoiceOption{{IsCorrect: true, PartialCredit: -1}}},
	}})
	require.ErrorContains(t, err, "negative partialCredit")
}

func TestValidateQuestionsMissingID(t *testing.T) {
	err := ValidateQuestions([]Question{{Type: TypeTextOnly}})
	require.ErrorContains(t, err, "question id is required")
}

func TestParseFloatLoose(t *testing.T) {
	cases := map[string]struct {
		want float64
		ok   bool
	}{
		"11":       {11, true},
		"  -2.5kg": {-2.5, true},
		".5":       {0.5, true},
		"1e3x":     {1000, true},
		"7.":       {7, true},
		"Infinity": {0, true},
		"abc":      {0, false},
		"":         {0, false},
		"- 3":      {0, false},
	}
	for in, tc := range cases {
		got, ok := parseFloatLoose(in)
		require.Equal(t, tc.ok, ok, in)
		if in == "Infinity" {
			require.True(t, got > 1e308, in)
			continue
		}
		if ok {
			require.Equal(t, tc.want, got, in)
		}
	}
}
