package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-autograde/internal/grading"
)

func newGradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade",
		Short: "Grade an answer file against a problem file",
		RunE: func(cmd *cobra.Command, args []string) error {
			problemPath, _ := cmd.Flags().GetString("problem")
			answersPath, _ := cmd.Flags().GetString("answers")

			questions, err := loadQuestions(problemPath)
			if err != nil {
				return err
			}
			answers, err := loadAnswers(answersPath)
			if err != nil {
				return err
			}

			grade := grading.GradeSubmission(questions, answers)
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, grade)
			}

			fmt.Fprintf(out, "%-20s  %-7s  %8s  %s\n", "Question", "Correct", "Points", "Feedback")
			fmt.Fprintln(out, strings.Repeat("─", 60))
			for _, r := range grade.Results {
				feedback := ""
				if r.Feedback != nil {
					feedback = *r.Feedback
				}
				fmt.Fprintf(out, "%-20s  %-7t  %8s  %s\n", r.QuestionID, r.IsCorrect,
					fmt.Sprintf("%g/%g", r.PointsEarned, r.PointsPossible), feedback)
			}
			fmt.Fprintf(out, "\n%g/%g points (%g%%)\n", grade.EarnedPoints, grade.TotalPoints, grade.Percentage)
			return nil
		},
	}
	cmd.Flags().String("problem", "", "Problem file (YAML or JSON)")
	cmd.Flags().String("answers", "", "Answers file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("problem")
	_ = cmd.MarkFlagRequired("answers")
	return cmd
}

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a problem file against the authoring rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			problemPath, _ := cmd.Flags().GetString("problem")
			questions, err := loadQuestions(problemPath)
			if err != nil {
				return err
			}
			var points float64
			for _, q := range questions {
				if q.Type.Graded() {
					points += q.Points
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ok: %d questions, %g points\n", len(questions), points)
			return nil
		},
	}
	cmd.Flags().String("problem", "", "Problem file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("problem")
	return cmd
}
