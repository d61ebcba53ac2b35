package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-autograde/internal/grading"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const problemYAML = `
title: Capitals
questions:
  - id: capital
    questionType: short_answer
    points: 2
    config:
      answers: [Paris]
  - id: blanks
    questionType: fill_blank
    points: 2
    config:
      blanks:
        - index: 0
          answers: [red]
        - index: 1
          answers: [blue]
  - id: intro
    questionType: text_only
`

func TestGradeYAMLProblem(t *testing.T) {
	problem := writeFile(t, "problem.yaml", problemYAML)
	answers := writeFile(t, "answers.yaml", `
capital: " paris"
blanks:
  0: Red
  1: green
`)

	out, err := run(t, "grade", "--problem", problem, "--answers", answers, "--json")
	require.NoError(t, err)

	var grade grading.SubmissionGrade
	require.NoError(t, json.Unmarshal([]byte(out), &grade))
	require.Len(t, grade.Results, 2)
	require.Equal(t, 4.0, grade.TotalPoints)
	require.Equal(t, 3.0, grade.EarnedPoints)
	require.Equal(t, 75.0, grade.Percentage)
}

func TestGradeJSONFilesTable(t *testing.T) {
	problem := writeFile(t, "problem.json", `[
	  {"id": "n", "questionType": "numeric", "points": 1, "config": {"answer": 9.81, "tolerance": 0.01}}
	]`)
	answers := writeFile(t, "answers.json", `[{"questionId": "n", "answer": "9.81"}]`)

	out, err := run(t, "grade", "--problem", problem, "--answers", answers)
	require.NoError(t, err)
	require.Contains(t, out, "1/1 points (100%)")
}

func TestGradeRequiresFlags(t *testing.T) {
	_, err := run(t, "grade")
	require.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	problem := writeFile(t, "problem.yml", problemYAML)
	out, err := run(t, "validate", "--problem", problem)
	require.NoError(t, err)
	require.Equal(t, "ok: 3 questions, 4 points\n", out)

	bad := writeFile(t, "bad.yaml", `
questions:
  - id: m
    questionType: matching
    points: 1
    config:
      items: [{text: Dog, correctAnswer: woof}]
      choices: [bark]
`)
	_, err = run(t, "validate", "--problem", bad)
	require.ErrorContains(t, err, "woof")

	multi := writeFile(t, "multi.yaml", "questions: []\n---\nquestions: []\n")
	_, err = run(t, "validate", "--problem", multi)
	require.ErrorContains(t, err, "multiple YAML documents")

	empty := writeFile(t, "empty.json", `{"title": "nothing"}`)
	_, err = run(t, "validate", "--problem", empty)
	require.ErrorContains(t, err, "no questions")
}

func TestRateCommand(t *testing.T) {
	out, err := run(t, "rate", "--user", "1500", "--problem", "1500", "--accuracy", "0",
		"--user-count", "5", "--problem-count", "5")
	require.NoError(t, err)
	require.Contains(t, out, "1500 -> 1424 (-76)")

	out, err = run(t, "rate", "--accuracy", "0", "--user-count", "5", "--problem-count", "5", "--json")
	require.NoError(t, err)
	var upd struct {
		RatingChange float64 `json:"ratingChange"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &upd))
	require.Equal(t, -76.0, upd.RatingChange)
}

func TestTypeRateCommand(t *testing.T) {
	out, err := run(t, "type-rate", "--rating", "1500", "--accuracy", "0.8", "--count", "0")
	require.NoError(t, err)
	require.Equal(t, "1500 -> 1530 (+30)\n", out)
}

func TestTierCommand(t *testing.T) {
	out, err := run(t, "tier", "--rating", "1750")
	require.NoError(t, err)
	require.Equal(t, "Candidate Master (rate-candidate-master)\n", out)

	out, err = run(t, "tier", "--rating", "0", "--json")
	require.NoError(t, err)
	require.JSONEq(t, `{"class": "", "title": "Unrated"}`, out)
}
