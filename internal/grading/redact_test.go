package grading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripKeysRemovesAnswers(t *testing.T) {
	qs := []Question{
		choiceQuestion(1),
		multiQuestion(2),
		{ID: "sa", Type: TypeShortAnswer, Config: ShortAnswerConfig{Answers: []string{"secret"}, IsRegex: true}},
		{ID: "fb", Type: TypeFillBlank, Config: FillBlankConfig{Blanks: []Blank{{Index: 2, Answers: []string{"secret"}}}}},
		{ID: "m", Type: TypeMatching, Config: MatchingConfig{
			Items:   []MatchItem{{Text: "Dog", CorrectAnswer: "secret"}},
			Choices: []MatchChoice{{ID: "secret"}, {ID: "other"}},
		}},
		{ID: "n", Type: TypeNumeric, Config: NumericConfig{Answer: f64(12345), Tolerance: 9, Unit: "kg"}},
	}
	for _, q := range qs {
		stripped := StripKeys(q)
		require.Equal(t, q.ID, stripped.ID)
		require.Equal(t, q.Type, stripped.Type)
		require.Empty(t, stripped.Explanation)

		raw, err := json.Marshal(stripped.Config)
		require.NoError(t, err)
		require.NotContains(t, string(raw), `"isCorrect":true`, q.ID)
		require.NotContains(t, string(raw), "Lyon is the third", q.ID)
		require.NotContains(t, string(raw), "partialCredit", q.ID)
		require.NotContains(t, string(raw), "12345", q.ID)
		if q.Type != TypeMatching {
			require.NotContains(t, string(raw), "secret", q.ID)
		}
	}

	m := StripKeys(qs[4]).Config.(MatchingConfig)
	require.Empty(t, m.Items[0].CorrectAnswer)
	require.Len(t, m.Choices, 2)

	require.Equal(t, "kg", StripKeys(qs[5]).Config.(NumericConfig).Unit)
	require.Equal(t, 2, StripKeys(qs[3]).Config.(FillBlankConfig).Blanks[0].Index)
}

func TestStripKeysDoesNotMutateInput(t *testing.T) {
	q := choiceQuestion(1)
	_ = StripKeys(q)
	require.True(t, q.Config.(ChoiceConfig).Options[1].IsCorrect)
}
