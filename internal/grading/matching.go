package grading

// matchingStrategy splits the points evenly across items. An item is correct
// only if the chosen value is exactly its correctAnswer.
type matchingStrategy struct{}

func (matchingStrategy) Grade(q Question, points float64, answer any) GradeResult {
	cfg := matchingConfig(q.Config)
	chosen := toChoiceMap(answer)

	total := len(cfg.Items)
	perItem := 0.0
	if total > 0 {
		perItem = points / float64(total)
	}

	correct := 0
	results := make(map[string]bool, total)
	for _, item := range cfg.Items {
		got, ok := chosen[item.Text]
		hit := ok && got == item.CorrectAnswer
		results[item.Text] = hit
		if hit {
			correct++
		}
	}

	return GradeResult{
		IsCorrect:      correct == total,
		PointsEarned:   round2(float64(correct) * perItem),
		PointsPossible: points,
		Explanation:    optional(q.Explanation),
		Details: map[string]any{
			"correctMatches": correct,
			"totalItems":     total,
			"itemResults":    results,
		},
	}
}
