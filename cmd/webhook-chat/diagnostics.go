package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var diagnosticsLimit int

var diagnosticsCmd = &cobra.Command{
	Use:   "diagnostics <session-id>",
	Short: "List recorded webhook failures for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runDiagnostics,
}

func init() {
	diagnosticsCmd.Flags().IntVarP(&diagnosticsLimit, "limit", "n", 20, "maximum number of failures to list")
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	if a.Diagnostics == nil {
		return errors.New("diagnostics: DIAGNOSTICS_TABLE is not set")
	}

	records, err := a.Diagnostics.ListFailures(cmd.Context(), args[0], diagnosticsLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no failures recorded")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTURN\tKIND\tSTATUS\tDETAIL")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", r.OccurredAt, r.TurnID, r.Kind, r.StatusCode, r.Detail)
	}
	return tw.Flush()
}
