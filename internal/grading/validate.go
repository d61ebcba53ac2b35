package grading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ParseQuestions decodes a JSON array of question definitions for authoring.
// Each element is checked against the envelope schema and the schema of its
// config variant before decoding; ValidateQuestions then runs the semantic
// checks. All problems are reported together. The grading path never calls
// this: stored definitions are trusted.
func ParseQuestions(data []byte) ([]Question, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("questions must be a JSON array: %w", err)
	}

	var errs []error
	qs := make([]Question, 0, len(raws))
	for i, raw := range raws {
		if err := validateRaw(raw); err != nil {
			errs = append(errs, fmt.Errorf("question #%d: %w", i, err))
			continue
		}
		var q Question
		if err := json.Unmarshal(raw, &q); err != nil {
			errs = append(errs, fmt.Errorf("question #%d: %w", i, err))
			continue
		}
		qs = append(qs, q)
	}
	if err := ValidateQuestions(qs); err != nil {
		errs = append(errs, err)
	}
	return qs, errors.Join(errs...)
}

// ValidateQuestions runs the authoring checks that a schema cannot express:
// unique ids, known types, matching answers that name a declared choice,
// non-negative partial credit and compilable answer patterns.
func ValidateQuestions(qs []Question) error {
	var errs []error
	seen := make(map[string]struct{}, len(qs))
	for _, q := range qs {
		if strings.TrimSpace(q.ID) == "" {
			errs = append(errs, errors.New("question id is required"))
		} else if _, dup := seen[q.ID]; dup {
			errs = append(errs, fmt.Errorf("duplicate question id %q", q.ID))
		}
		seen[q.ID] = struct{}{}

		if !q.Type.Known() {
			errs = append(errs, fmt.Errorf("question %q: unknown type %q", q.ID, q.Type))
			continue
		}
		if q.Points < 0 {
			errs = append(errs, fmt.Errorf("question %q: points must not be negative", q.ID))
		}

		switch q.Type {
		case TypeMatching:
			errs = append(errs, validateMatchingConfig(matchingConfig(q.Config))...)
		case TypeMultipleChoice:
			for i, o := range choiceOptions(q.Config) {
				if o.PartialCredit < 0 {
					errs = append(errs, fmt.Errorf("question %q: option %d has negative partialCredit", q.ID, i))
				}
			}
		case TypeShortAnswer:
			cfg := shortAnswerConfig(q.Config)
			if cfg.IsRegex {
				errs = append(errs, validatePatterns(q.ID, cfg.Answers)...)
			}
		case TypeFillBlank:
			for _, b := range fillBlankConfig(q.Config).Blanks {
				if b.IsRegex {
					errs = append(errs, validatePatterns(q.ID, b.Answers)...)
				}
			}
		}
	}
	return errors.Join(errs...)
}

func validateMatchingConfig(cfg MatchingConfig) []error {
	var errs []error
	ids := make(map[string]struct{}, len(cfg.Choices))
	for _, c := range cfg.Choices {
		ids[c.ID] = struct{}{}
	}
	for _, item := range cfg.Items {
		if _, ok := ids[item.CorrectAnswer]; !ok {
			errs = append(errs, fmt.Errorf("matching item answer %q not found in choices", item.CorrectAnswer))
		}
	}
	return errs
}

func validatePatterns(id string, patterns []string) []error {
	var errs []error
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("question %q: invalid pattern %q: %w", id, p, err))
		}
	}
	return errs
}

// --- schemas ---

const questionSchema = `{
  "type": "object",
  "required": ["id", "questionType"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "questionType": {"type": "string", "minLength": 1},
    "points": {"type": ["number", "null"], "minimum": 0},
    "explanation": {"type": ["string", "null"]},
    "orderIndex": {"type": "integer"}
  }
}`

const choiceOptionSchema = `{
  "type": "object",
  "required": ["isCorrect"],
  "properties": {
    "id": {"type": "string"},
    "text": {"type": "string"},
    "isCorrect": {"type": "boolean"},
    "feedback": {"type": ["string", "null"]},
    "partialCredit": {"type": "number"}
  }
}`

var configSchemas = map[QuestionType]string{
	TypeSingleChoice: `{"type": "object", "required": ["options"],
    "properties": {"options": {"type": "array", "items": ` + choiceOptionSchema + `}}}`,
	TypeTrueFalse: `{"type": "object", "required": ["options"],
    "properties": {"options": {"type": "array", "maxItems": 2, "items": ` + choiceOptionSchema + `}}}`,
	TypeMultipleChoice: `{"type": "object", "required": ["options"],
    "properties": {"options": {"type": "array", "items": ` + choiceOptionSchema + `}}}`,
	TypeShortAnswer: `{"type": "object", "required": ["answers"],
    "properties": {
      "answers": {"type": "array", "items": {"type": "string"}},
      "caseSensitive": {"type": "boolean"},
      "isRegex": {"type": "boolean"}}}`,
	TypeFillBlank: `{"type": "object", "required": ["blanks"],
    "properties": {"blanks": {"type": "array", "items": {
      "type": "object", "required": ["index", "answers"],
      "properties": {
        "index": {"type": "integer", "minimum": 0},
        "answers": {"type": "array", "items": {"type": "string"}},
        "caseSensitive": {"type": "boolean"},
        "isRegex": {"type": "boolean"}}}}}}`,
	TypeMatching: `{"type": "object", "required": ["items"],
    "properties": {
      "items": {"type": "array", "items": {
        "type": "object", "required": ["text", "correctAnswer"],
        "properties": {"text": {"type": "string"}, "correctAnswer": {"type": "string"}}}},
      "choices": {"type": "array", "items": {"oneOf": [
        {"type": "string"},
        {"type": "object", "required": ["id"], "properties": {"id": {"type": "string"}, "text": {"type": "string"}}}]}}}}`,
	TypeNumeric: `{"type": "object", "required": ["answer"],
    "properties": {
      "answer": {"type": "number"},
      "tolerance": {"type": "number", "minimum": 0},
      "unit": {"type": "string"}}}`,
	TypeTextOnly: `{"type": ["object", "null"]}`,
}

// schemaCache caches compiled schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

func validateRaw(raw json.RawMessage) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	envelope, err := compiledSchema("question", questionSchema)
	if err != nil {
		return err
	}
	if err := envelope.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	obj, _ := doc.(map[string]any)
	qt, _ := obj["questionType"].(string)
	def, ok := configSchemas[QuestionType(qt)]
	if !ok {
		return fmt.Errorf("unknown type %q", qt)
	}
	cfg, present := obj["config"]
	if !present || cfg == nil {
		if QuestionType(qt) == TypeTextOnly {
			return nil
		}
		return errors.New("config is required")
	}
	sch, err := compiledSchema(qt, def)
	if err != nil {
		return err
	}
	if err := sch.Validate(cfg); err != nil {
		return fmt.Errorf("config schema validation failed: %w", err)
	}
	return nil
}

// compiledSchema returns a cached compiled schema or compiles and caches it.
func compiledSchema(name, def string) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	parsed, err := jsonschema.UnmarshalJSON(strings.NewReader(def))
	if err != nil {
		return nil, fmt.Errorf("parse schema %q: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://%s.json", name)
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(name, compiled)
	return compiled, nil
}
