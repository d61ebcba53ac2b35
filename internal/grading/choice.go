package grading

// singleChoiceStrategy grades single_choice and true_false: the answer is one
// option index and correctness is that option's flag.
type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(q Question, points float64, answer any) GradeResult {
	res := GradeResult{PointsPossible: points, Explanation: optional(q.Explanation)}
	opts := choiceOptions(q.Config)
	idx, ok := toIndex(answer)
	if !ok || idx < 0 || idx >= len(opts) {
		return res
	}

	selected := opts[idx]
	res.IsCorrect = selected.IsCorrect
	if selected.IsCorrect {
		res.PointsEarned = points
	}
	// option feedback, then the question explanation
	res.Feedback = optional(selected.Feedback)
	res.Explanation = firstNonEmpty(selected.Feedback, q.Explanation)
	return res
}

// multipleChoiceStrategy gives full credit for the exact correct index set and
// otherwise sums the partialCredit of the correct options that were picked.
type multipleChoiceStrategy struct{}

func (multipleChoiceStrategy) Grade(q Question, points float64, answer any) GradeResult {
	res := GradeResult{PointsPossible: points, Explanation: optional(q.Explanation)}
	opts := choiceOptions(q.Config)

	selected := toIndexSet(answer)
	if len(selected) == 0 {
		return res
	}

	correct := make(map[int]struct{})
	for i, o := range opts {
		if o.IsCorrect {
			correct[i] = struct{}{}
		}
	}

	if setEqual(selected, correct) {
		res.IsCorrect = true
		res.PointsEarned = points
		return res
	}

	partial := 0.0
	correctCount := 0
	for idx := range selected {
		if idx < 0 || idx >= len(opts) || !opts[idx].IsCorrect {
			continue
		}
		partial += opts[idx].PartialCredit
		correctCount++
	}
	if partial > points {
		partial = points
	}
	if partial < 0 {
		partial = 0
	}

	res.PointsEarned = partial
	res.Details = map[string]any{
		"correctCount": correctCount,
		"totalCorrect": len(correct),
	}
	return res
}

func setEqual(a, b map[int]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
