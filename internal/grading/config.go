package grading

import (
	"encoding/json"
	"errors"
)

// Config is the per-type question payload. The set of implementations is
// closed: one struct per QuestionType.
type Config interface {
	isConfig()
}

// ChoiceOption is one selectable option of a choice question.
type ChoiceOption struct {
	ID            string  `json:"id,omitempty"`
	Text          string  `json:"text,omitempty"`
	IsCorrect     bool    `json:"isCorrect"`
	Feedback      string  `json:"feedback,omitempty"`
	PartialCredit float64 `json:"partialCredit,omitempty"`
}

// ChoiceConfig backs single_choice and true_false questions.
type ChoiceConfig struct {
	Options []ChoiceOption `json:"options"`
}

// MultipleChoiceConfig backs multiple_choice questions.
type MultipleChoiceConfig struct {
	Options []ChoiceOption `json:"options"`
}

// ShortAnswerConfig lists acceptable answers, tried in order.
type ShortAnswerConfig struct {
	Answers       []string `json:"answers"`
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
	IsRegex       bool     `json:"isRegex,omitempty"`
}

// Blank is one gap of a fill_blank question.
type Blank struct {
	Index         int      `json:"index"`
	Answers       []string `json:"answers"`
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
	IsRegex       bool     `json:"isRegex,omitempty"`
}

type FillBlankConfig struct {
	Blanks []Blank `json:"blanks"`
}

// MatchItem pairs a prompt with the id of its correct choice.
type MatchItem struct {
	Text          string `json:"text"`
	CorrectAnswer string `json:"correctAnswer"`
}

// MatchChoice is a choice a matching item can be paired with. Authors may
// write a choice as a bare string, which is then both id and text.
type MatchChoice struct {
	ID   string `json:"id"`
	Text string `json:"text,omitempty"`
}

func (c *MatchChoice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = MatchChoice{ID: s, Text: s}
		return nil
	}
	type plain MatchChoice
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return errors.New("matching choice must be a string or an object with an id")
	}
	*c = MatchChoice(p)
	return nil
}

type MatchingConfig struct {
	Items   []MatchItem   `json:"items"`
	Choices []MatchChoice `json:"choices,omitempty"`
}

// NumericConfig accepts answers within Tolerance of Answer (inclusive).
// A nil Answer never matches.
type NumericConfig struct {
	Answer    *float64 `json:"answer"`
	Tolerance float64  `json:"tolerance,omitempty"`
	Unit      string   `json:"unit,omitempty"`
}

// TextOnlyConfig marks informational content that is never graded.
type TextOnlyConfig struct{}

// UnknownConfig keeps the raw payload of an unrecognised question type.
type UnknownConfig struct {
	Raw json.RawMessage
}

func (u UnknownConfig) MarshalJSON() ([]byte, error) {
	if len(u.Raw) == 0 {
		return []byte("null"), nil
	}
	return u.Raw, nil
}

func (ChoiceConfig) isConfig()         {}
func (MultipleChoiceConfig) isConfig() {}
func (ShortAnswerConfig) isConfig()    {}
func (FillBlankConfig) isConfig()      {}
func (MatchingConfig) isConfig()       {}
func (NumericConfig) isConfig()        {}
func (TextOnlyConfig) isConfig()       {}
func (UnknownConfig) isConfig()        {}

// The accessors below resolve a question's Config to the payload expected by
// its type. A nil or mismatched Config yields the zero payload, which grades
// every answer as incorrect.

func choiceOptions(c Config) []ChoiceOption {
	switch v := c.(type) {
	case ChoiceConfig:
		return v.Options
	case *ChoiceConfig:
		if v != nil {
			return v.Options
		}
	case MultipleChoiceConfig:
		return v.Options
	case *MultipleChoiceConfig:
		if v != nil {
			return v.Options
		}
	}
	return nil
}

func shortAnswerConfig(c Config) ShortAnswerConfig {
	switch v := c.(type) {
	case ShortAnswerConfig:
		return v
	case *ShortAnswerConfig:
		if v != nil {
			return *v
		}
	}
	return ShortAnswerConfig{}
}

func fillBlankConfig(c Config) FillBlankConfig {
	switch v := c.(type) {
	case FillBlankConfig:
		return v
	case *FillBlankConfig:
		if v != nil {
			return *v
		}
	}
	return FillBlankConfig{}
}

func matchingConfig(c Config) MatchingConfig {
	switch v := c.(type) {
	case MatchingConfig:
		return v
	case *MatchingConfig:
		if v != nil {
			return *v
		}
	}
	return MatchingConfig{}
}

func numericConfig(c Config) NumericConfig {
	switch v := c.(type) {
	case NumericConfig:
		return v
	case *NumericConfig:
		if v != nil {
			return *v
		}
	}
	return NumericConfig{}
}
