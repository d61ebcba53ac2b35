package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-autograde/internal/grading"
)

// readDocument decodes a YAML or JSON file (chosen by extension, YAML
// otherwise) and re-encodes it as JSON.
func readDocument(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if !json.Valid(data) {
			return nil, fmt.Errorf("%s: invalid JSON", path)
		}
		return data, nil
	default:
		doc, err := decodeYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return json.Marshal(doc)
	}
}

func decodeYAML(data []byte) (any, error) {
	var doc any
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, fmt.Errorf("parse yaml: multiple YAML documents are not supported")
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return jsonCompatible(doc), nil
}

// jsonCompatible rewrites maps with non-string keys, which YAML allows
// (e.g. blank indexes), into string-keyed maps.
func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = jsonCompatible(e)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = jsonCompatible(e)
		}
		return out
	case []any:
		for i, e := range t {
			t[i] = jsonCompatible(e)
		}
		return t
	default:
		return v
	}
}

// loadQuestions reads a problem file and runs the authoring checks on it.
func loadQuestions(path string) ([]grading.Question, error) {
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var pf struct {
			Questions json.RawMessage `json:"questions"`
		}
		if err := json.Unmarshal(data, &pf); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(pf.Questions) == 0 {
			return nil, fmt.Errorf("%s: no questions", path)
		}
		data = pf.Questions
	}
	return grading.ParseQuestions(data)
}

// loadAnswers reads answers either as a list of {questionId, answer} records
// or as a map from question id to answer.
func loadAnswers(path string) ([]grading.Answer, error) {
	data, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	var list []grading.Answer
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var byID map[string]any
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("%s: answers must be a list or a map of question id to answer", path)
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]grading.Answer, 0, len(ids))
	for _, id := range ids {
		out = append(out, grading.Answer{QuestionID: id, Value: byID[id]})
	}
	return out, nil
}
