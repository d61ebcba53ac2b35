package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gradectl",
		Short:        "Grade question sets and preview rating updates offline",
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("json", false, "Print results as JSON")

	root.AddCommand(newGradeCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRateCmd())
	root.AddCommand(newTypeRateCmd())
	root.AddCommand(newTierCmd())
	return root
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
