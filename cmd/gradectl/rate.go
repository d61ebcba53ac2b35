package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-autograde/internal/rating"
)

func newRateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Preview one learner/problem rating update",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetFloat64("user")
			problem, _ := cmd.Flags().GetFloat64("problem")
			accuracy, _ := cmd.Flags().GetFloat64("accuracy")
			userCount, _ := cmd.Flags().GetInt("user-count")
			problemCount, _ := cmd.Flags().GetInt("problem-count")

			upd := rating.UpdateRatings(user, problem, accuracy, userCount, problemCount)
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, upd)
			}
			fmt.Fprintf(out, "expected:     %.4f\n", rating.ExpectedScore(user, problem))
			fmt.Fprintf(out, "user:         %s -> %s (%+g)\n", rating.Format(user), rating.Format(upd.NewUserRating), upd.RatingChange)
			fmt.Fprintf(out, "problem:      %s -> %s\n", rating.Format(problem), rating.Format(upd.NewProblemRating))
			fmt.Fprintf(out, "tier:         %s\n", rating.TierFor(upd.NewUserRating).Title)
			return nil
		},
	}
	cmd.Flags().Float64("user", 1500, "Learner rating")
	cmd.Flags().Float64("problem", 1500, "Problem rating")
	cmd.Flags().Float64("accuracy", 0, "Score fraction in [0,1]")
	cmd.Flags().Int("user-count", 1, "Learner submission count, including this one")
	cmd.Flags().Int("problem-count", 1, "Problem submission count, including this one")
	return cmd
}

func newTypeRateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "type-rate",
		Short: "Preview one per-type rating update",
		RunE: func(cmd *cobra.Command, args []string) error {
			current, _ := cmd.Flags().GetFloat64("rating")
			accuracy, _ := cmd.Flags().GetFloat64("accuracy")
			count, _ := cmd.Flags().GetInt("count")

			upd := rating.UpdateTypeRating(current, accuracy, count)
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, upd)
			}
			fmt.Fprintf(out, "%s -> %s (%+g)\n", rating.Format(current), rating.Format(upd.NewRating), upd.RatingChange)
			return nil
		},
	}
	cmd.Flags().Float64("rating", 1500, "Current type rating")
	cmd.Flags().Float64("accuracy", 0, "Score fraction in [0,1]")
	cmd.Flags().Int("count", 0, "Submission count for this type")
	return cmd
}

func newTierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tier",
		Short: "Show the tier of a rating",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, _ := cmd.Flags().GetFloat64("rating")
			t := rating.TierFor(r)
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, t)
			}
			fmt.Fprintf(out, "%s (%s)\n", t.Title, t.Class)
			return nil
		},
	}
	cmd.Flags().Float64("rating", 0, "Rating to classify")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}
