package grading

// StripKeys returns a copy of q that is safe to show a learner before
// grading: correctness flags, accepted answers, per-option feedback, partial
// credit, numeric targets and the explanation are removed.
func StripKeys(q Question) Question {
	out := q
	out.Explanation = ""
	switch q.Type {
	case TypeSingleChoice, TypeTrueFalse:
		out.Config = ChoiceConfig{Options: stripOptions(choiceOptions(q.Config))}
	case TypeMultipleChoice:
		out.Config = MultipleChoiceConfig{Options: stripOptions(choiceOptions(q.Config))}
	case TypeShortAnswer:
		cfg := shortAnswerConfig(q.Config)
		out.Config = ShortAnswerConfig{CaseSensitive: cfg.CaseSensitive}
	case TypeFillBlank:
		cfg := fillBlankConfig(q.Config)
		blanks := make([]Blank, len(cfg.Blanks))
		for i, b := range cfg.Blanks {
			blanks[i] = Blank{Index: b.Index, CaseSensitive: b.CaseSensitive}
		}
		out.Config = FillBlankConfig{Blanks: blanks}
	case TypeMatching:
		cfg := matchingConfig(q.Config)
		items := make([]MatchItem, len(cfg.Items))
		for i, it := range cfg.Items {
			items[i] = MatchItem{Text: it.Text}
		}
		out.Config = MatchingConfig{Items: items, Choices: append([]MatchChoice(nil), cfg.Choices...)}
	case TypeNumeric:
		out.Config = NumericConfig{Unit: numericConfig(q.Config).Unit}
	}
	return out
}

func stripOptions(opts []ChoiceOption) []ChoiceOption {
	out := make([]ChoiceOption, len(opts))
	for i, o := range opts {
		out[i] = ChoiceOption{ID: o.ID, Text: o.Text}
	}
	return out
}
